package agent

import (
	"fmt"
	"strings"
)

type SymptomInput struct {
	Description      string `json:"description"`
	PredictedSymptom string `json:"predicted_symptom"`
	Risk             string `json:"risk"`
}

type MedicationInput struct {
	Name   string `json:"name"`
	Dosage string `json:"dosage"`
}

const systemPrompt = `You are MedAware, a cautious health assistant.
You help users understand patterns in the symptoms and medications they log.
You do not diagnose conditions and you never change prescriptions.
Point out possible medication side effects or interactions only as possibilities to discuss with a clinician.
If any symptom is marked HIGH risk, clearly recommend contacting a doctor or urgent care.
Reply in at most five short sentences of plain text.`

// buildUserPrompt lists the symptoms and medications for the model.
func buildUserPrompt(symptoms []SymptomInput, meds []MedicationInput) string {
	var b strings.Builder

	b.WriteString("Recent symptoms:\n")

	if len(symptoms) == 0 {
		b.WriteString("- none reported\n")
	}

	for _, s := range symptoms {
		fmt.Fprintf(&b, "- %s", orUnknown(s.Description))

		if s.PredictedSymptom != "" {
			fmt.Fprintf(&b, " (classified as %s", s.PredictedSymptom)
			if s.Risk != "" {
				fmt.Fprintf(&b, ", %s risk", strings.ToUpper(s.Risk))
			}
			b.WriteString(")")
		} else if s.Risk != "" {
			fmt.Fprintf(&b, " (%s risk)", strings.ToUpper(s.Risk))
		}

		b.WriteString("\n")
	}

	b.WriteString("\nCurrent medications:\n")

	if len(meds) == 0 {
		b.WriteString("- none reported\n")
	}

	for _, m := range meds {
		fmt.Fprintf(&b, "- %s", orUnknown(m.Name))
		if m.Dosage != "" {
			fmt.Fprintf(&b, " %s", m.Dosage)
		}
		b.WriteString("\n")
	}

	b.WriteString("\nWhat should I keep in mind?")

	return b.String()
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "unspecified"
	}

	return s
}
