// Package textproc cleans query and corpus text and cuts long text into
// overlapping segments.
package textproc

import (
	"regexp"
	"strings"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	periodsRe    = regexp.MustCompile(`\.{2,}`)
	unitSpaceRe  = regexp.MustCompile(`(?i)(\d)\s+(mcg|mg|kg|ml|cm|mm|iu|meq)\b`)
	capsTokenRe  = regexp.MustCompile(`\b[A-Z]{2,}\b`)
)

// medicalAbbreviations stay uppercase after normalization.
var medicalAbbreviations = map[string]struct{}{
	"ADHD": {}, "AIDS": {}, "BMI": {}, "BP": {}, "CBC": {}, "CF": {},
	"CHD": {}, "CMV": {}, "CNS": {}, "CPR": {}, "CSF": {}, "CT": {},
	"DKA": {}, "DNA": {}, "ECG": {}, "ED": {}, "EEG": {}, "EKG": {},
	"ENT": {}, "GERD": {}, "GI": {}, "HIV": {}, "HPV": {}, "HR": {},
	"ICU": {}, "IM": {}, "IU": {}, "IV": {}, "IVIG": {}, "MRI": {},
	"NICU": {}, "NSAID": {}, "PICU": {}, "PO": {}, "RNA": {}, "RR": {},
	"RSV": {}, "SIDS": {}, "TB": {}, "URI": {}, "UTI": {}, "WHO": {},
}

// IsMedicalAbbreviation reports whether token is kept uppercase by Normalize.
func IsMedicalAbbreviation(token string) bool {
	_, ok := medicalAbbreviations[token]
	return ok
}

// Normalize collapses whitespace and repeated periods, attaches medical
// units to their number and lowercases shouting tokens that are not known
// abbreviations. Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	out := whitespaceRe.ReplaceAllString(text, " ")
	out = strings.TrimSpace(out)
	out = periodsRe.ReplaceAllString(out, ".")
	out = unitSpaceRe.ReplaceAllString(out, "$1$2")
	out = capsTokenRe.ReplaceAllStringFunc(out, func(tok string) string {
		if IsMedicalAbbreviation(tok) {
			return tok
		}
		return strings.ToLower(tok)
	})
	return out
}
