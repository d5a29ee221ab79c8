package metric

import "fmt"

type definition struct {
	name    string
	label   string
	aliases []string
}

type bucketDef struct {
	name    string
	label   string
	aliases []string
}

type fieldDef struct {
	name    string
	label   string
	aliases []string
}

var roundDefinitions = map[ID]definition{
	DrivingDistance:    {"driving_distance", "Driving Distance", []string{"Driving Distance", "driving_dist", "distance", "dist"}},
	DrivingAccuracy:    {"driving_accuracy", "Driving Accuracy", []string{"Driving Accuracy", "driving_acc", "fairways_hit_pct", "Fairways Hit %"}},
	SGTotal:            {"sg_total", "SG: Total", []string{"SG: Total", "strokes_gained_total", "sg_tot"}},
	SGOffTee:           {"sg_ott", "SG: Off-the-Tee", []string{"SG: Off-the-Tee", "SG: Off the Tee", "strokes_gained_off_the_tee", "sg_off_tee"}},
	SGApproach:         {"sg_app", "SG: Approach", []string{"SG: Approach the Green", "SG: Approach", "strokes_gained_approach", "sg_approach"}},
	SGAroundGreen:      {"sg_arg", "SG: Around-the-Green", []string{"SG: Around-the-Green", "SG: Around the Green", "strokes_gained_around_the_green", "sg_around_green"}},
	SGPutting:          {"sg_putt", "SG: Putting", []string{"SG: Putting", "strokes_gained_putting", "sg_putting"}},
	SGTeeToGreen:       {"sg_t2g", "SG: Tee-to-Green", []string{"SG: Tee-to-Green", "SG: Tee to Green", "strokes_gained_tee_to_green", "sg_tee_to_green"}},
	GreensInRegulation: {"gir", "Greens in Regulation", []string{"Greens in Regulation", "GIR %", "gir_pct", "greens_in_regulation_pct"}},
	Scrambling:         {"scrambling", "Scrambling", []string{"Scrambling %", "scrambling_pct", "scramble"}},
	Proximity:          {"proximity", "Proximity to Hole", []string{"Proximity to Hole", "prox", "proximity_ft", "approach_proximity"}},
	ScoringAverage:     {"scoring_avg", "Scoring Average", []string{"Scoring Average", "scoring_average", "score_avg"}},
	BirdiesPerRound:    {"birdies_per_round", "Birdies per Round", []string{"Birdies", "birdie_avg", "Birdie Average"}},
	BogeysPerRound:     {"bogeys_per_round", "Bogeys per Round", []string{"Bogeys", "bogey_avg", "Bogey Average"}},
	PuttsPerRound:      {"putts_per_round", "Putts per Round", []string{"Putts per Round", "putts", "putting_avg"}},
}

var buckets = [bucketEnd]bucketDef{
	Rounds:          {"rounds", "Rounds", nil},
	Fairway50to100:  {"fw_50_100", "Fairway 50-100 yds", []string{"50-100 FW", "fairway_50_100", "50_100_fw"}},
	Fairway100to150: {"fw_100_150", "Fairway 100-150 yds", []string{"100-150 FW", "fairway_100_150", "100_150_fw"}},
	Fairway150to200: {"fw_150_200", "Fairway 150-200 yds", []string{"150-200 FW", "fairway_150_200", "150_200_fw"}},
	Fairway200Plus:  {"fw_200_plus", "Fairway 200+ yds", []string{"200+ FW", "fairway_200_plus", "fw_over_200"}},
	RoughUnder150:   {"rough_under_150", "Rough under 150 yds", []string{"Rough Under 150", "rough_lt_150", "rough_0_150"}},
	Rough150Plus:    {"rough_150_plus", "Rough over 150 yds", []string{"Rough 150 Plus", "rough_gt_150", "rough_over_150"}},
}

var fields = [fieldEnd]fieldDef{
	FieldGIR:       {"gir", "GIR Rate", []string{"gir_rate", "gir_pct"}},
	FieldGoodShot:  {"good_shot", "Good Shot Rate", []string{"good_shot_rate", "good_shot_pct"}},
	FieldPoorAvoid: {"poor_avoid", "Poor Shot Avoidance", []string{"poor_shot_avoidance", "poor_shot_avoid_rate", "poor_avoid_rate"}},
	FieldProximity: {"proximity", "Proximity", []string{"prox", "proximity_per_shot"}},
	FieldSGPerShot: {"sg_per_shot", "SG per Shot", []string{"sg", "sg_shot"}},
}

// lowerIsBetter is the explicit direction registry. Approach proximity
// fields are added in init.
var lowerIsBetter = map[ID]bool{
	Proximity:      true,
	ScoringAverage: true,
	BogeysPerRound: true,
	PuttsPerRound:  true,
}

var definitions = make(map[ID]definition, Count)

func init() {
	for id, def := range roundDefinitions {
		definitions[id] = def
	}
	for _, b := range ApproachBuckets() {
		bd := buckets[b]
		for f := Field(0); f < fieldEnd; f++ {
			fd := fields[f]
			id := Approach(b, f)
			def := definition{
				name:  "app_" + bd.name + "_" + fd.name,
				label: bd.label + " " + fd.label,
			}
			def.aliases = append(def.aliases,
				bd.name+"_"+fd.name,
				"approach_"+bd.name+"_"+fd.name,
				bd.label+" "+fd.label,
			)
			for _, ba := range bd.aliases {
				def.aliases = append(def.aliases, ba+" "+fd.name)
			}
			for _, fa := range fd.aliases {
				def.aliases = append(def.aliases, bd.name+"_"+fa)
			}
			definitions[id] = def
			if f == FieldProximity {
				lowerIsBetter[id] = true
			}
		}
	}
	if len(definitions) != Count {
		panic(fmt.Sprintf("metric: %d definitions for %d ids", len(definitions), Count))
	}
	buildIndex()
}
