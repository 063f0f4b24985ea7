package bonemap

import "strings"

// defaultAliases lists known node names per label in priority order across
// plain, PascalCase, Mixamo-prefixed and side-suffixed conventions.
var defaultAliases = map[Label][]string{
	Hips:          {"hips", "Hips", "mixamorig:Hips", "pelvis", "Pelvis", "root", "Root"},
	Spine:         {"spine", "Spine", "mixamorig:Spine", "spine_1", "Spine_1", "spine_2", "Spine_2"},
	Chest:         {"chest", "Chest", "mixamorig:Spine2", "spine_03", "spine_3", "Spine_3", "upperchest"},
	Neck:          {"neck", "Neck", "mixamorig:Neck", "neck_01"},
	Head:          {"head", "Head", "mixamorig:Head"},
	LeftShoulder:  {"leftShoulder", "LeftShoulder", "mixamorig:LeftShoulder", "shoulder_l", "clavicle_l"},
	LeftUpperArm:  {"leftUpperArm", "LeftUpperArm", "mixamorig:LeftArm", "leftArm", "LeftArm", "upperarm_l"},
	LeftLowerArm:  {"leftLowerArm", "LeftLowerArm", "mixamorig:LeftForeArm", "leftForeArm", "LeftForeArm", "lowerarm_l"},
	LeftHand:      {"leftHand", "LeftHand", "mixamorig:LeftHand", "hand_l"},
	RightShoulder: {"rightShoulder", "RightShoulder", "mixamorig:RightShoulder", "shoulder_r", "clavicle_r"},
	RightUpperArm: {"rightUpperArm", "RightUpperArm", "mixamorig:RightArm", "rightArm", "RightArm", "upperarm_r"},
	RightLowerArm: {"rightLowerArm", "RightLowerArm", "mixamorig:RightForeArm", "rightForeArm", "RightForeArm", "lowerarm_r"},
	RightHand:     {"rightHand", "RightHand", "mixamorig:RightHand", "hand_r"},
	LeftUpperLeg:  {"leftUpperLeg", "LeftUpperLeg", "mixamorig:LeftUpLeg", "leftUpLeg", "LeftUpLeg", "thigh_l"},
	LeftLowerLeg:  {"leftLowerLeg", "LeftLowerLeg", "mixamorig:LeftLeg", "leftLeg", "LeftLeg", "calf_l"},
	LeftFoot:      {"leftFoot", "LeftFoot", "mixamorig:LeftFoot", "foot_l"},
	RightUpperLeg: {"rightUpperLeg", "RightUpperLeg", "mixamorig:RightUpLeg", "rightUpLeg", "RightUpLeg", "thigh_r"},
	RightLowerLeg: {"rightLowerLeg", "RightLowerLeg", "mixamorig:RightLeg", "rightLeg", "RightLeg", "calf_r"},
	RightFoot:     {"rightFoot", "RightFoot", "mixamorig:RightFoot", "foot_r"},
}

// Aliases returns the default alias list for l, lower-cased and
// de-duplicated, in priority order.
func Aliases(l Label) []string {
	return normalize(defaultAliases[l])
}

func normalize(aliases []string) []string {
	seen := make(map[string]bool, len(aliases))
	out := make([]string, 0, len(aliases))
	for _, a := range aliases {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}
