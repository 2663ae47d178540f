// Package spec holds the built-in CPS basic monthly configuration: the field
// allow-list, the string-typed fields, the implied-decimal fields, the source
// index page and link patterns, and the rule deriving a year token from a
// layout document's file name.
//
// Layout documents come in two variants. Legacy dictionaries carry a two-digit
// year and "dd" in the name (e.g. jan10dd.txt); current ones are named
// "<Month>_<YYYY>_Record_Layout.txt". Both put the field name first on a line
// and end the line with the start and end byte positions.
package spec

import (
	"maps"
	"path/filepath"
	"regexp"
	"slices"
)

const (
	IndexURL = "https://thedataweb.rm.census.gov/ftp/cps_ftp.html"

	// DataPattern selects the monthly public-use data archives.
	DataPattern = `basic.*[a-z]{3}1[1-9]pub\.zip$`
	// LayoutPattern selects the record layout documents.
	LayoutPattern = `basic/201[0-9]+.*\.txt$`
	// LayoutFilePattern matches the base names of downloaded layout
	// documents when the work directory is scanned without the index.
	LayoutFilePattern = `(?i)^(?:[a-z]{3}[0-9]{2}dd|[a-z]+_20[0-9]{2}_record_layout)\.txt$`

	YearPattern = `1[0-9]`
)

// KeepVars is the master list of fields retained from the raw files.
// Extend it through the layout config file rather than editing here.
var KeepVars = []string{
	"HRHHID", "HRMONTH", "HRYEAR4", "HURESPLI", "HRHHID2",
	"HUFINAL", "HRHTYPE", "HRMIS", "HUINTTYP", "HRLONGLK",
	"GEREG", "GEDIV", "GESTFIPS", "GTCBSA", "GTCBSASZ",
	"PRCIVLF", "PREXPLF", "PUIODP1", "PEIO1COW", "PEIO2COW",
	"PEERNHRO", "PEERNLAB", "PEERNCOV", "PESCHENR", "PESCHFT",
	"PWLGWGT", "PWORWGT", "PWSSWGT", "PERRP", "PRTAGE",
	"PRTFAGE", "PEMARITL", "PESPOUSE", "PESEX", "PEEDUCA",
	"PTDTRACE", "PRDTHSP", "PRCITSHP", "PEMLR", "PUDIS",
	"PEMJOT", "PEMJNUM", "PEHRUSL1", "PEHRUSL2", "PEHRUSLT",
	"PEHRRSN1", "PEHRRSN2", "PEHRRSN3", "PUHROT1", "PUHROT2",
	"PEJHRSN", "PEJHWKO", "PRCHLD", "PRNMCHLD", "PXHRUSL1",
	"PXHRUSL2", "PXHRUSLT", "PXJHWKO", "PEIO1ICD", "PEIO2ICD",
	"PEIO1OCD", "PEIO2OCD", "PXJHRSN", "PXIO1ICD", "PXIO2ICD",
	"PXIO1OCD", "PXIO2OCD", "QSTNUM", "OCCURNUM", "PRERNWA",
	"PECERT1", "PECERT2", "PECERT3", "PUSLFPRX", "PRFTLF",
	"PRHRUSL", "PRPTHRS", "PRPTREA", "PREMPHRS", "PULINENO",
	"PRDTIND1", "PRDTIND2", "PRDTOCC1", "PRDTOCC2", "PRAGNA",
	"PRDTCOW1", "PRDTCOW2", "PTHR", "PRERELG", "PEERNUOT",
	"PEERNPER", "PEERNRT", "PEERNHRY", "PUERNH1C", "PEERNH2",
	"PEERNH1O", "PRERNHLY", "PEERN", "PTWK",
	"PUERN2", "PTOT", "PEERNWKP", "PRWERNAL", "PRHERNAL", "PEAGE",
	"PEPDEMP1", "PEPDEMP2", "PTNMEMP1", "PTNMEMP2", "HUPRSCNT",
}

// StringVars are emitted with the str qualifier. Each should also be in KeepVars.
var StringVars = []string{"HRHHID", "HRHHID2", "GESTFIPS", "GTCBSA"}

// Implied-decimal fields. The raw data omit the decimal point; infix cannot
// express the scaling, so these only annotate the codebook.
var (
	Dec4Vars = []string{"PWLGWGT", "PWORWGT", "PWSSWGT"}
	Dec2Vars = []string{"PRERNWA"}
)

// ImpliedDecimals returns the number of implied decimal places for a field.
func ImpliedDecimals(name string) int {
	switch {
	case slices.Contains(Dec4Vars, name):
		return 4
	case slices.Contains(Dec2Vars, name):
		return 2
	}
	return 0
}

// YearRemap holds the irregular year codes. The 2010 layout document is the
// one used for 2011 files, so its code maps forward a year.
var YearRemap = map[string]string{"10": "11"}

// YearRule derives a canonical two-digit year token from a file name.
type YearRule struct {
	Pattern *regexp.Regexp
	Remap   map[string]string
}

// DefaultYearRule is the rule used when no layout config overrides it.
func DefaultYearRule() YearRule {
	return YearRule{
		Pattern: regexp.MustCompile(YearPattern),
		Remap:   maps.Clone(YearRemap),
	}
}

// Token looks at the base name only. It requires exactly one match;
// anything else is not a recognizable layout document.
func (r YearRule) Token(filename string) (string, bool) {
	found := r.Pattern.FindAllString(filepath.Base(filename), -1)
	if len(found) != 1 {
		return "", false
	}
	if y, ok := r.Remap[found[0]]; ok {
		return y, true
	}
	return found[0], true
}
