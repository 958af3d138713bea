package ai

import (
	"fmt"
	"strconv"
	"strings"

	"moral-torture-machine/internal/models"
	"moral-torture-machine/internal/utils"
	"moral-torture-machine/pkg/profile"
)

// MaxPromptExamples is how many sampled dilemmas are shown to the model.
const MaxPromptExamples = 3

const exampleSnippetLength = 100

type promptText struct {
	generate        string
	generateTail    string
	examplesHeader  string
	exampleLabel    string
	analyzeIntro    string
	dilemmasHeader  string
	optionsLabel    string
	optionsJoiner   string
	choseLabel      string
	analyzeRequests string
}

var promptTexts = map[string]promptText{
	"en": {
		generate: "Generate a NEW and UNIQUE ethical dilemma (40-80 words) with two challenging options. " +
			"IMPORTANT: Create a completely new and different dilemma from the ones you've seen. " +
			"Do not copy or modify the provided examples - create something original. " +
			"Each option should present a valid but contrasting viewpoint, encouraging reflection. " +
			"Add a light tease for each option to make the dilemma more engaging. " +
			"Ensure balance and complexity, avoiding oversimplified choices. " +
			"Respond strictly in JSON format with the following structure: " +
			`{"dilemma": "...", "firstAnswer": "...", "secondAnswer": "...", ` +
			`"teaseOption1": "...", "teaseOption2": "..."} `,
		generateTail: "FORMAT THE ANSWER STRICTLY IN THE JSON I PROVIDED! NOTHING BUT THE JSON SHOULD BE IN YOUR ANSWER. " +
			"ENSURE THE DILEMMA IS COMPLETELY NEW AND NOT A VARIATION OF THE EXAMPLES!",
		examplesHeader: "\n\nHere are some examples of the style and complexity I'm looking for:\n",
		exampleLabel:   "Example",
		analyzeIntro: "You are analyzing a person's moral profile based on their responses to ethical dilemmas. " +
			"Here are their average scores across different moral categories: ",
		dilemmasHeader: "\n\nHere are the specific dilemmas they faced and their choices:\n",
		optionsLabel:   "Options",
		optionsJoiner:  "or",
		choseLabel:     "They chose",
		analyzeRequests: "\nGenerate a thoughtful, slightly dark and creepy analysis that: " +
			"1) References their SPECIFIC choices in the dilemmas they faced " +
			"2) Identifies their dominant moral traits based on their actual decisions " +
			"3) Explains what their choices reveal about their character and priorities " +
			"4) Provides insight into potential moral blind spots or strengths " +
			`5) Uses a tone that fits the "Moral Torture Machine" theme - mysterious, slightly unsettling, but insightful ` +
			`Write in second person (addressing "you") and maintain a haunting, philosophical tone. ` +
			"IMPORTANT: Base your analysis on the ACTUAL choices they made, not just the numerical scores. " +
			"CRITICAL CONSTRAINT: The analysis must be MAXIMUM 100 words. Be concise and impactful. " +
			"Do not use JSON format, just return the analysis text directly.",
	},
	"it": {
		generate: "Genera un NUOVO e UNICO dilemma etico (40-80 parole) con due opzioni difficili. " +
			"IMPORTANTE: Crea un dilemma completamente nuovo e diverso da quelli che hai visto. " +
			"Non copiare o modificare gli esempi forniti - crea qualcosa di originale. " +
			"Ogni opzione dovrebbe presentare un punto di vista valido ma contrastante, incoraggiando la riflessione. " +
			"Aggiungi una leggera presa in giro per ogni opzione per rendere il dilemma più coinvolgente. " +
			"Assicurati equilibrio e complessità, evitando scelte semplificate. " +
			"Rispondi rigorosamente in formato JSON con la seguente struttura: " +
			`{"dilemma": "...", "firstAnswer": "...", "secondAnswer": "...", ` +
			`"teaseOption1": "...", "teaseOption2": "..."} `,
		generateTail: "FORMATTA LA RISPOSTA RIGOROSAMENTE NEL JSON CHE HO FORNITO! NIENT'ALTRO CHE IL JSON DOVREBBE ESSERE NELLA TUA RISPOSTA. " +
			"ASSICURATI CHE IL DILEMMA SIA COMPLETAMENTE NUOVO E NON UNA VARIAZIONE DEGLI ESEMPI!",
		examplesHeader: "\n\nHere are some examples of the style and complexity I'm looking for:\n",
		exampleLabel:   "Example",
		analyzeIntro: "Stai analizzando il profilo morale di una persona basandoti sulle sue risposte a dilemmi etici. " +
			"Ecco i loro punteggi medi attraverso diverse categorie morali: ",
		dilemmasHeader: "\n\nEcco i dilemmi specifici che hanno affrontato e le loro scelte:\n",
		optionsLabel:   "Opzioni",
		optionsJoiner:  "oppure",
		choseLabel:     "Hanno scelto",
		analyzeRequests: "\nGenera un'analisi ponderata, leggermente oscura e inquietante che: " +
			"1) Fa riferimento alle loro scelte SPECIFICHE nei dilemmi che hanno affrontato " +
			"2) Identifica i loro tratti morali dominanti basandosi sulle loro decisioni effettive " +
			"3) Spiega cosa rivelano le loro scelte sul loro carattere e priorità " +
			"4) Fornisce intuizioni su potenziali punti ciechi morali o punti di forza " +
			`5) Usa un tono che si adatta al tema "Moral Torture Machine" - misterioso, leggermente inquietante, ma perspicace ` +
			`Scrivi in seconda persona (rivolgendoti a "tu") e mantieni un tono inquietante e filosofico. ` +
			"IMPORTANTE: Basa la tua analisi sulle scelte EFFETTIVE che hanno fatto, non solo sui punteggi numerici. " +
			"VINCOLO CRUCIALE: L'analisi deve essere di MASSIMO 100 parole. Sii conciso e incisivo. " +
			"Non usare il formato JSON, restituisci solo il testo dell'analisi direttamente.",
	},
}

// textsFor returns the Italian texts for "it" and English for anything else.
func textsFor(language string) promptText {
	if t, ok := promptTexts[language]; ok {
		return t
	}
	return promptTexts["en"]
}

// GeneratePrompt asks for a new dilemma, quoting up to MaxPromptExamples
// samples of the same language as style references.
func GeneratePrompt(language string, samples []models.Dilemma) string {
	t := textsFor(language)
	var b strings.Builder
	b.WriteString(t.generate)
	if len(samples) > 0 {
		b.WriteString(t.examplesHeader)
		for i, d := range samples {
			if i == MaxPromptExamples {
				break
			}
			fmt.Fprintf(&b, "\n%s %d:\n", t.exampleLabel, i+1)
			fmt.Fprintf(&b, `{"dilemma": "%s...", "firstAnswer": "%s", "secondAnswer": "%s", "teaseOption1": "%s", "teaseOption2": "%s"}`+"\n",
				utils.Truncate(d.Dilemma, exampleSnippetLength), d.FirstAnswer, d.SecondAnswer, d.TeaseOption1, d.TeaseOption2)
		}
	}
	b.WriteString(t.generateTail)
	return b.String()
}

// AnalyzePrompt asks for a short second-person reading of a moral profile.
func AnalyzePrompt(language string, averages profile.Profile, choices []models.DilemmaWithChoice) string {
	t := textsFor(language)
	var b strings.Builder
	b.WriteString(t.analyzeIntro)
	b.WriteString(ProfileSummary(averages))
	b.WriteString(".")
	if len(choices) > 0 {
		b.WriteString(t.dilemmasHeader)
		for i, d := range choices {
			fmt.Fprintf(&b, "\n%d. Dilemma: %s\n", i+1, d.Dilemma)
			fmt.Fprintf(&b, "   %s: '%s' %s '%s'\n", t.optionsLabel, d.FirstAnswer, t.optionsJoiner, d.SecondAnswer)
			fmt.Fprintf(&b, "   %s: '%s'\n", t.choseLabel, d.ChosenAnswer)
		}
	}
	b.WriteString(t.analyzeRequests)
	return b.String()
}

// ProfileSummary renders averages as "Trait: value, ..." in canonical order.
func ProfileSummary(averages profile.Profile) string {
	parts := make([]string, 0, len(averages))
	for _, k := range averages.Keys() {
		parts = append(parts, k+": "+strconv.FormatFloat(averages[k], 'f', -1, 64))
	}
	return strings.Join(parts, ", ")
}
