package models

import (
	"fmt"
	"strings"
	"time"
)

// Trait names in the order used by charts and prompts.
const (
	TraitEmpathy        = "Empathy"
	TraitIntegrity      = "Integrity"
	TraitResponsibility = "Responsibility"
	TraitJustice        = "Justice"
	TraitAltruism       = "Altruism"
	TraitHonesty        = "Honesty"
)

// Traits lists the six moral traits scored for every answer.
var Traits = []string{
	TraitEmpathy,
	TraitIntegrity,
	TraitResponsibility,
	TraitJustice,
	TraitAltruism,
	TraitHonesty,
}

// Vote values accepted by POST /vote.
const (
	VoteYes = "yes"
	VoteNo  = "no"
)

// Source of a dilemma record.
const (
	DilemmaSourceSeed = "seed"
	DilemmaSourceAI   = "ai"
)

// TraitVector holds the six trait scores of one answer.
type TraitVector struct {
	Empathy        float64 `json:"Empathy"`
	Integrity      float64 `json:"Integrity"`
	Responsibility float64 `json:"Responsibility"`
	Justice        float64 `json:"Justice"`
	Altruism       float64 `json:"Altruism"`
	Honesty        float64 `json:"Honesty"`
}

// Map returns the vector keyed by trait name.
func (v TraitVector) Map() map[string]float64 {
	return map[string]float64{
		TraitEmpathy:        v.Empathy,
		TraitIntegrity:      v.Integrity,
		TraitResponsibility: v.Responsibility,
		TraitJustice:        v.Justice,
		TraitAltruism:       v.Altruism,
		TraitHonesty:        v.Honesty,
	}
}

// Get returns the score of a single trait. Unknown names yield 0.
func (v TraitVector) Get(trait string) float64 {
	return v.Map()[trait]
}

// TraitVectorFromMap builds a vector from a trait-keyed map, ignoring unknown keys.
func TraitVectorFromMap(m map[string]float64) TraitVector {
	return TraitVector{
		Empathy:        m[TraitEmpathy],
		Integrity:      m[TraitIntegrity],
		Responsibility: m[TraitResponsibility],
		Justice:        m[TraitJustice],
		Altruism:       m[TraitAltruism],
		Honesty:        m[TraitHonesty],
	}
}

// Dilemma is a two-choice ethical scenario. JSON names match the public API.
type Dilemma struct {
	ID           string `json:"_id" db:"id"`
	BaseID       string `json:"baseId,omitempty" db:"base_id"`
	Language     string `json:"language,omitempty" db:"language"`
	Dilemma      string `json:"dilemma" db:"dilemma"`
	FirstAnswer  string `json:"firstAnswer" db:"first_answer"`
	SecondAnswer string `json:"secondAnswer" db:"second_answer"`
	TeaseOption1 string `json:"teaseOption1" db:"tease_option1"`
	TeaseOption2 string `json:"teaseOption2" db:"tease_option2"`

	FirstAnswerEmpathy         float64 `json:"firstAnswerEmpathy" db:"first_answer_empathy"`
	FirstAnswerIntegrity       float64 `json:"firstAnswerIntegrity" db:"first_answer_integrity"`
	FirstAnswerResponsibility  float64 `json:"firstAnswerResponsibility" db:"first_answer_responsibility"`
	FirstAnswerJustice         float64 `json:"firstAnswerJustice" db:"first_answer_justice"`
	FirstAnswerAltruism        float64 `json:"firstAnswerAltruism" db:"first_answer_altruism"`
	FirstAnswerHonesty         float64 `json:"firstAnswerHonesty" db:"first_answer_honesty"`
	SecondAnswerEmpathy        float64 `json:"secondAnswerEmpathy" db:"second_answer_empathy"`
	SecondAnswerIntegrity      float64 `json:"secondAnswerIntegrity" db:"second_answer_integrity"`
	SecondAnswerResponsibility float64 `json:"secondAnswerResponsibility" db:"second_answer_responsibility"`
	SecondAnswerJustice        float64 `json:"secondAnswerJustice" db:"second_answer_justice"`
	SecondAnswerAltruism       float64 `json:"secondAnswerAltruism" db:"second_answer_altruism"`
	SecondAnswerHonesty        float64 `json:"secondAnswerHonesty" db:"second_answer_honesty"`

	YesCount int64 `json:"yesCount" db:"yes_count"`
	NoCount  int64 `json:"noCount" db:"no_count"`

	Source    string    `json:"-" db:"source"`
	CreatedAt time.Time `json:"-" db:"created_at"`
}

// Choice returns the trait scores of the first or second answer.
func (d *Dilemma) Choice(first bool) TraitVector {
	if first {
		return TraitVector{
			Empathy:        d.FirstAnswerEmpathy,
			Integrity:      d.FirstAnswerIntegrity,
			Responsibility: d.FirstAnswerResponsibility,
			Justice:        d.FirstAnswerJustice,
			Altruism:       d.FirstAnswerAltruism,
			Honesty:        d.FirstAnswerHonesty,
		}
	}
	return TraitVector{
		Empathy:        d.SecondAnswerEmpathy,
		Integrity:      d.SecondAnswerIntegrity,
		Responsibility: d.SecondAnswerResponsibility,
		Justice:        d.SecondAnswerJustice,
		Altruism:       d.SecondAnswerAltruism,
		Honesty:        d.SecondAnswerHonesty,
	}
}

// Tease returns the reaction text for the chosen answer.
func (d *Dilemma) Tease(first bool) string {
	if first {
		return d.TeaseOption1
	}
	return d.TeaseOption2
}

// Answer returns the label of the chosen answer.
func (d *Dilemma) Answer(first bool) string {
	if first {
		return d.FirstAnswer
	}
	return d.SecondAnswer
}

// VoteShare returns the yes/no split as fractions. Both are 0 when nobody voted.
func (d *Dilemma) VoteShare() (yes, no float64) {
	total := d.YesCount + d.NoCount
	if total == 0 {
		return 0, 0
	}
	return float64(d.YesCount) / float64(total), float64(d.NoCount) / float64(total)
}

// LocalizedID builds the stored id of a record from its base id and language.
func LocalizedID(baseID, language string) string {
	return fmt.Sprintf("%s-%s", baseID, language)
}

// BaseIDOf strips the language suffix added by LocalizedID.
func BaseIDOf(id, language string) string {
	return strings.TrimSuffix(id, "-"+language)
}

// DilemmaWithChoice describes one answered dilemma for results analysis.
type DilemmaWithChoice struct {
	Dilemma      string             `json:"dilemma"`
	FirstAnswer  string             `json:"firstAnswer"`
	SecondAnswer string             `json:"secondAnswer"`
	ChosenAnswer string             `json:"chosenAnswer"`
	ChosenValues map[string]float64 `json:"chosenValues"`
}

// GeneratedDilemma is the JSON object the language model is asked to produce.
type GeneratedDilemma struct {
	Dilemma      string `json:"dilemma"`
	FirstAnswer  string `json:"firstAnswer"`
	SecondAnswer string `json:"secondAnswer"`
	TeaseOption1 string `json:"teaseOption1"`
	TeaseOption2 string `json:"teaseOption2"`
}

// VoteTally is the vote state of a dilemma after a vote.
type VoteTally struct {
	DilemmaID string `json:"dilemmaId"`
	YesCount  int64  `json:"yesCount"`
	NoCount   int64  `json:"noCount"`
}
