// mkfixture writes a synthetic labeled claims CSV for local runs and demos.
// Denial propensity varies by procedure and payer so the grouping step has
// real signal to find.
// Usage: go run ./cmd/mkfixture --out testdata/claims.csv --rows 5000 --denial-rate 0.08
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"

	"github.com/gyeh/claimrisk/internal/claims"
	"github.com/gyeh/claimrisk/internal/config"
)

var header = []string{
	"Claim.ID",
	claims.ChargeColumn,
	"Procedure.Code",
	"Diagnosis.Code",
	"Service.Code",
	"Revenue.Code",
	"Provider.Specialty",
	"Payer",
	claims.DenialColumn,
}

// procedure codes with a relative denial weight
var procedures = []struct {
	code   string
	weight float64
}{
	{"99213", 0.2}, {"99214", 0.4}, {"99215", 1.5}, {"80050", 0.1},
	{"36415", 0.05}, {"97110", 2.5}, {"J1885", 4}, {"93000", 0.3},
}

var (
	diagnoses   = []string{"E11.9", "I10", "M54.5", "J06.9", "Z00.00", "R07.9"}
	services    = []string{"01", "02", "11", "21", "23"}
	revenues    = []string{"0250", "0300", "0450", "0510", "0636", ""}
	specialties = []string{"Family Medicine", "Cardiology", "Orthopedics", "Physical Therapy", ""}
	payers      = []struct {
		name   string
		weight float64
	}{
		{"Aetna", 1}, {"Cigna", 1.3}, {"Humana", 0.7}, {"UnitedHealthcare", 1.8}, {"Medicare", 0.5},
	}
	otherDenials = []string{"CO45", "CO97", "PR1", "PR2", "CO16"}
)

func main() {
	out := flag.String("out", "testdata/claims.csv", "output CSV")
	rows := flag.Int("rows", 2000, "claims to generate")
	rate := flag.Float64("denial-rate", 0.05, "base rate of denials for a code of interest")
	other := flag.Float64("other-rate", 0.1, "rate of denials for other reason codes")
	seed := flag.Uint64("seed", 42, "random seed")
	checkOnly := flag.Bool("check", false, "only print label stats for --out, don't write")
	flag.Parse()

	if *checkOnly {
		if err := check(*out); err != nil {
			fmt.Fprintf(os.Stderr, "check: %v\n", err)
			os.Exit(1)
		}
		return
	}

	f, err := os.Create(*out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create output: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	rng := rand.New(rand.NewPCG(*seed, *seed+1))
	codes := config.DefaultCodes
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		fmt.Fprintf(os.Stderr, "write: %v\n", err)
		os.Exit(1)
	}

	denied := 0
	for i := 0; i < *rows; i++ {
		proc := procedures[rng.IntN(len(procedures))]
		payer := payers[rng.IntN(len(payers))]

		denial := ""
		p := *rate * proc.weight * payer.weight
		switch r := rng.Float64(); {
		case r < p:
			denial = codes[rng.IntN(len(codes))]
			denied++
		case r < p+*other:
			denial = otherDenials[rng.IntN(len(otherDenials))]
		}

		charge := ""
		if rng.IntN(50) != 0 {
			charge = strconv.FormatFloat(20+rng.ExpFloat64()*300, 'f', 2, 64)
		}

		rec := []string{
			fmt.Sprintf("C%07d", i+1),
			charge,
			proc.code,
			diagnoses[rng.IntN(len(diagnoses))],
			services[rng.IntN(len(services))],
			revenues[rng.IntN(len(revenues))],
			specialties[rng.IntN(len(specialties))],
			payer.name,
			denial,
		}
		if err := w.Write(rec); err != nil {
			fmt.Fprintf(os.Stderr, "write: %v\n", err)
			os.Exit(1)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		fmt.Fprintf(os.Stderr, "flush: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %d claims to %s (%d denied for a code of interest)\n", *rows, *out, denied)
}

func check(path string) error {
	tbl, err := claims.Load(path)
	if err != nil {
		return err
	}
	labels, err := claims.AssignLabels(tbl, claims.DenialColumn, claims.NewCodeSet(config.DefaultCodes), "")
	if err != nil {
		return err
	}
	pos := 0
	for _, l := range labels {
		pos += l
	}
	fmt.Printf("Claims: %d, positives: %d", tbl.Len(), pos)
	if tbl.Len() > 0 {
		fmt.Printf(" (%.2f%%)", 100*float64(pos)/float64(tbl.Len()))
	}
	fmt.Println()
	return nil
}
