package app

import (
	"fmt"

	"github.com/mind-engage/mindengage-selection/internal/config"
	"github.com/mind-engage/mindengage-selection/internal/records"
)

var demoApplicants = []struct {
	name, dept string
	final      float64
}{
	{"Aisha Rahman", "CS", 84.5},
	{"Bilal Nizar", "EC", 79},
	{"Celine Joseph", "ME", 79},
	{"Dev Menon", "CS", 71.5},
	{"Fathima Zahra", "EEE", 66},
	{"Gokul Raj", "CE", 0},
}

// SeedDemo fills an empty in-memory store with a few linked candidates so the
// board and desk have something to show.
func SeedDemo(m *records.Memory, cfg config.Config) {
	for i, a := range demoApplicants {
		chest := fmt.Sprintf("C%02d", i+1)
		adm := fmt.Sprintf("ADM%03d", 100+i)
		scoreID := "recDemoScore" + chest
		fields := map[string]any{
			"CHEST_NO":     chest,
			"Admission_No": adm,
			"FINAL_TOTAL":  a.final,
		}
		if a.final > 0 {
			fields["TOTAL_S1"] = a.final * 0.3
			fields["TOTAL_S2"] = a.final * 0.35
			fields["TOTAL_S3"] = a.final * 0.35
		}
		m.Seed(cfg.ScoresCollection, records.Record{ID: scoreID, Fields: fields})
		m.Seed(cfg.ApplicantsCollection, records.Record{Fields: map[string]any{
			"Admission_No": adm,
			"Name":         a.name,
			"department":   a.dept,
			"CHEST_NO":     []string{scoreID},
		}})
	}
}
