// comfort-check evaluates one body snapshot and prints the local and overall
// sensation and comfort. Without -input it runs the cold-cabin driver scenario
// the model was validated against and checks its expected bounds.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"text/tabwriter"

	"github.com/chrissnell/thermalcomfort/internal/log"
	"github.com/chrissnell/thermalcomfort/pkg/comfort"
)

// maxScenarioRate bounds the random local skin rates of the driver scenario
const maxScenarioRate = 2e-5

func main() {
	var (
		inputFile = flag.String("input", "", "JSON file holding one comfort input; default is the cold-cabin scenario")
		variant   = flag.String("variant", "calibrated", "Comfort-transfer calibration: calibrated or baseline")
		seed      = flag.Uint64("seed", 1, "Seed for the scenario's random skin rates")
		jsonOut   = flag.Bool("json", false, "Print the result as JSON")
		debug     = flag.Bool("debug", false, "Turn on debugging output")
	)
	flag.Parse()

	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	v, err := comfort.ParseVariant(*variant)
	if err != nil {
		log.Fatalf("%v", err)
	}
	tables, err := comfort.TablesFor(v)
	if err != nil {
		log.Fatalf("%v", err)
	}

	in := scenario(*seed)
	if *inputFile != "" {
		if in, err = readInput(*inputFile); err != nil {
			log.Fatalf("could not read input: %v", err)
		}
	}

	res, err := comfort.Evaluate(tables, in)
	if err != nil {
		log.Fatalf("evaluation failed: %v", err)
	}
	if res.Degenerate {
		log.Warnf("every overall-sensation weight was zero; overall sensation is the unweighted mean")
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			log.Fatalf("could not encode result: %v", err)
		}
	} else {
		printResult(res, v)
	}

	if *inputFile == "" {
		if err := checkScenario(res); err != nil {
			log.Errorf("scenario check failed: %v", err)
			os.Exit(1)
		}
		log.Infof("scenario check passed")
	}
}

// scenario is the cold-cabin driver snapshot with small random warming rates
func scenario(seed uint64) comfort.Input {
	rng := rand.New(rand.NewPCG(seed, seed))

	in := comfort.Input{
		Skin: map[comfort.Segment]float64{
			comfort.Head: 24.6, comfort.Face: 26, comfort.Neck: 27, comfort.BreathZone: 26,
			comfort.Chest: 28.5, comfort.Back: 28.5, comfort.Pelvis: 28,
			comfort.LUArm: 29, comfort.RUArm: 29, comfort.LLArm: 29, comfort.RLArm: 29,
			comfort.LHand: 24, comfort.RHand: 24,
			comfort.LThigh: 28, comfort.RThigh: 28, comfort.LCalf: 28, comfort.RCalf: 28,
			comfort.LFoot: 28, comfort.RFoot: 28,
		},
		MeanSkin:        24.6,
		SkinRate:        make(map[comfort.Segment]float64),
		CoreRateUniform: 0,
	}
	for _, seg := range comfort.Segments() {
		in.SkinRate[seg] = rng.Float64() * maxScenarioRate
	}
	return in
}

func readInput(path string) (comfort.Input, error) {
	var in comfort.Input
	f, err := os.Open(path)
	if err != nil {
		return in, err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	err = dec.Decode(&in)
	return in, err
}

func checkScenario(res *comfort.Result) error {
	if math.IsNaN(res.OverallSensation) || math.IsInf(res.OverallSensation, 0) {
		return fmt.Errorf("overall sensation %g is not finite", res.OverallSensation)
	}
	if math.IsNaN(res.OverallComfort) || math.IsInf(res.OverallComfort, 0) {
		return fmt.Errorf("overall comfort %g is not finite", res.OverallComfort)
	}
	if res.OverallComfort > 0 {
		return fmt.Errorf("overall comfort %g should not be positive in a cold cabin", res.OverallComfort)
	}
	return nil
}

func printResult(res *comfort.Result, v comfort.Variant) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "segment\tsensation\tcomfort\t")
	for _, seg := range comfort.Segments() {
		s, ok := res.LocalSensation[seg]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%s\t%.3f\t%.3f\t\n", seg, s, res.LocalComfort[seg])
	}
	w.Flush()

	fmt.Printf("\nvariant:           %s\n", v)
	fmt.Printf("overall sensation: %.3f\n", res.OverallSensation)
	fmt.Printf("overall comfort:   %.3f (%s, driven by %v)\n", res.OverallComfort, res.Regime, res.Selected)
}
