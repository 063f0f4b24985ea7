// mocap-watch: connects to a running mocap-server, optionally sends
// playback commands, and prints the pose and status feeds.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-mocap/internal/log"
	"github.com/teslashibe/go-mocap/pkg/animator"
	"github.com/teslashibe/go-mocap/pkg/bonemap"
	"github.com/teslashibe/go-mocap/pkg/protocol"
)

var (
	addr   = flag.String("addr", "localhost:8080", "mocap-server host:port")
	every  = flag.Int("every", 30, "Print every Nth pose message")
	bone   = flag.String("bone", "LeftUpperArm", "Bone printed with each pose")
	play   = flag.String("play", "", "Send play command: on, off or toggle")
	speed  = flag.Float64("speed", 0, "Send a speed command when > 0")
	seek   = flag.Float64("seek", -1, "Send a seek command when in [0,1]")
	rigURL = flag.String("rig", "", "Send a swap_rig command for this URL")
	level  = flag.String("log-level", "info", "Log level")
)

func main() {
	flag.Parse()
	log.Init(*level)
	logger := log.Component("watch")

	label, err := bonemap.ParseLabel(*bone)
	if err != nil {
		logger.Error("unknown bone", "bone", *bone, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	control, err := dial(ctx, "/ws/control")
	if err != nil {
		logger.Error("connect control", "error", err)
		os.Exit(1)
	}
	defer control.Close()

	go printControl(control)

	for _, msg := range commands() {
		if err := control.WriteJSON(msg); err != nil {
			logger.Error("send command", "type", msg.Type, "error", err)
			os.Exit(1)
		}
	}

	feed, err := dial(ctx, "/ws/pose")
	if err != nil {
		logger.Error("connect pose feed", "error", err)
		os.Exit(1)
	}
	defer feed.Close()

	go func() {
		<-ctx.Done()
		feed.Close()
		control.Close()
	}()

	n := 0
	for {
		_, data, err := feed.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn("pose feed closed", "error", err)
			}
			return
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil || msg.Type != protocol.TypePose {
			continue
		}
		n++
		if *every > 1 && n%*every != 0 {
			continue
		}
		var snap animator.Snapshot
		if err := json.Unmarshal(msg.Data, &snap); err != nil {
			logger.Warn("bad pose message", "error", err)
			continue
		}
		printPose(&snap, label)
	}
}

func dial(ctx context.Context, path string) (*websocket.Conn, error) {
	u := url.URL{Scheme: "ws", Host: *addr, Path: path}
	dctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	conn, _, err := websocket.DefaultDialer.DialContext(dctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.String(), err)
	}
	return conn, nil
}

func commands() []*protocol.Message {
	var out []*protocol.Message
	add := func(m *protocol.Message, err error) {
		if err == nil {
			m.ID = fmt.Sprintf("watch-%d", len(out)+1)
			out = append(out, m)
		}
	}
	if *rigURL != "" {
		add(protocol.NewSwapRigMessage(*rigURL))
	}
	switch *play {
	case "on":
		add(protocol.NewPlayMessage(true))
	case "off":
		add(protocol.NewPlayMessage(false))
	case "toggle":
		add(protocol.NewToggleMessage())
	}
	if *speed > 0 {
		add(protocol.NewSpeedMessage(*speed))
	}
	if *seek >= 0 && *seek <= 1 {
		add(protocol.NewSeekMessage(*seek))
	}
	add(protocol.NewMessage(protocol.TypeGetStatus, nil))
	return out
}

func printControl(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil {
			continue
		}
		switch msg.Type {
		case protocol.TypeStatus:
			var st animator.Status
			if err := json.Unmarshal(msg.Data, &st); err != nil {
				continue
			}
			ps := st.Playback
			fmt.Printf("📊 %s  frame %d/%d  speed %.2fx  loop=%v  rig=%s (%.0f%% mapped)\n",
				ps.State, ps.Index, ps.FrameCount, ps.Speed, ps.Loop, st.Rig.Name, st.Rig.Coverage*100)
			if st.Rig.Pending != "" {
				fmt.Printf("   ⏳ loading rig %s\n", st.Rig.Pending)
			}
			if st.Rig.LastError != "" {
				fmt.Printf("   ⚠️  last rig error: %s\n", st.Rig.LastError)
			}
		case protocol.TypeError:
			if e, err := msg.GetErrorData(); err == nil {
				fmt.Printf("❌ %s: %s\n", e.Command, e.Message)
			}
		}
	}
}

func printPose(snap *animator.Snapshot, label bonemap.Label) {
	line := fmt.Sprintf("🦴 frame %4d  cursor %7.2f  bones %2d", snap.Frame, snap.Cursor, len(snap.Bones))
	if b, ok := snap.Bone(label); ok {
		q := b.Rotation
		line += fmt.Sprintf("  %s(%s) q=[%.3f %.3f %.3f %.3f]", label, b.Node, q.Real, q.Imag, q.Jmag, q.Kmag)
	}
	if len(snap.Skipped) > 0 {
		line += fmt.Sprintf("  skipped %v", snap.Skipped)
	}
	fmt.Println(line)
}
