package siteio

// lineScanner scans a single tab-separated site-summary line, adapted from
// the teacher's vcf.StringScanner (vcf/string-scanner.go) — the same
// index-into-a-string approach, narrowed to this format's one delimiter
// instead of VCF's several field conventions.
type lineScanner struct {
	index int
	data  string
}

// reset reinitializes the scanner with a new line, dropping any trailing
// newline.
func (sc *lineScanner) reset(line string) {
	sc.index = 0
	sc.data = line
	if n := len(sc.data); n > 0 && sc.data[n-1] == '\n' {
		sc.data = sc.data[:n-1]
	}
}

// field returns the next tab-delimited field, advancing past the tab. ok is
// false once the line is exhausted.
func (sc *lineScanner) field() (s string, ok bool) {
	if sc.index >= len(sc.data) {
		return "", false
	}
	start := sc.index
	for end := sc.index; end < len(sc.data); end++ {
		if sc.data[end] == '\t' {
			sc.index = end + 1
			return sc.data[start:end], true
		}
	}
	sc.index = len(sc.data)
	return sc.data[start:], true
}

// rest returns everything not yet consumed.
func (sc *lineScanner) rest() string {
	return sc.data[sc.index:]
}
