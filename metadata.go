package fcs

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Parameter is the resolved metadata for one channel (FCS 3.1 §3.2.19-20).
type Parameter struct {
	// Index is the 1-based parameter number, matching the $PnX keywords.
	Index int

	BitWidth      string  `keyword:"$P%dB" validate:"required"` // "*" marks ASCII-variable width; otherwise a positive integer.
	Range         int     `keyword:"$P%dR" validate:"required,min=1"`
	ShortName     string  `keyword:"$P%dN"`
	LongName      string  `keyword:"$P%dS"`
	Amplification string  `keyword:"$P%dE"` // "decades,offset"
	Gain          *string `keyword:"$P%dG"` // v3.0+

	// AmplificationDecades and AmplificationOffset are the parsed halves
	// of $PnE, kept alongside the raw string for convenience.
	AmplificationDecades float64
	AmplificationOffset  float64
}

// BitWidthInt returns the numeric bit width, or (0, false) if this
// parameter uses variable-width ASCII ($PnB=*).
func (p Parameter) BitWidthInt() (int, bool) {
	if p.BitWidth == "*" {
		return 0, false
	}
	n, err := strconv.Atoi(p.BitWidth)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Metadata is the typed view over a resolved TEXT (or TEXT+supplemental
// TEXT) segment. Standard keywords used by the codec are promoted to
// fields; every keyword, standard or not, remains reachable via Raw().
type Metadata struct {
	Version string

	DataType string `keyword:"$DATATYPE" validate:"required,oneof=I F D A"`
	ByteOrd  string `keyword:"$BYTEORD" validate:"required"`
	Mode     string `keyword:"$MODE" validate:"required,eq=L"`

	NumParameters int `keyword:"$PAR" validate:"required,min=1"`
	NumEvents     int `keyword:"$TOT"`

	NextData int `keyword:"$NEXTDATA"`

	BeginData         int `keyword:"$BEGINDATA"`
	EndData           int `keyword:"$ENDDATA"`
	BeginAnalysis     int `keyword:"$BEGINANALYSIS"`
	EndAnalysis       int `keyword:"$ENDANALYSIS"`
	BeginSupplemental int `keyword:"$BEGINSTEXT"`
	EndSupplemental   int `keyword:"$ENDSTEXT"`

	// A handful of common optional vendor keywords; anything else stays
	// reachable only via Raw().
	FileName  string `keyword:"$FIL"`
	Operator  string `keyword:"$OP"`
	Source    string `keyword:"$SRC"`
	Cytometer string `keyword:"$CYT"`
	Comment   string `keyword:"$COM"`

	Parameters []Parameter

	// ByteOrderPermutation is the 1-based byte-index permutation decoded
	// from $BYTEORD, least-significant byte first (e.g. "1,2,3,4" ->
	// [1,2,3,4], "4,3,2,1" -> [4,3,2,1]).
	ByteOrderPermutation []int

	raw      map[string]string
	keywords []string
	warnings []string
}

// Raw returns the key-value map of every keyword found in TEXT (and
// supplemental TEXT, if any), with keys normalized per normalizeKeyword.
func (m *Metadata) Raw() map[string]string { return m.raw }

// Keywords returns all keywords in file order (first occurrence).
func (m *Metadata) Keywords() []string { return m.keywords }

// Warnings returns non-fatal conditions noted while resolving metadata:
// duplicate keywords and HEADER/TEXT offset mismatches (spec.md §7).
func (m *Metadata) Warnings() []string { return m.warnings }

var validate = validator.New()

// resolveMetadata builds a typed Metadata from a tokenized TEXT segment
// and validates the required standard keywords. Supplemental TEXT is not
// seen here; the caller merges it into the result afterwards.
func resolveMetadata(version string, seg *textSegment) (*Metadata, error) {
	m := &Metadata{
		Version:  version,
		raw:      seg.kv,
		keywords: seg.keywords,
		warnings: append([]string(nil), seg.warnings...),
	}

	if err := scanKeywordFields(reflect.ValueOf(m).Elem(), seg.kv, -1); err != nil {
		return nil, err
	}

	if err := validate.Struct(m); err != nil {
		return nil, translateValidationError(err, m)
	}

	m.Parameters = make([]Parameter, m.NumParameters)
	for i := 0; i < m.NumParameters; i++ {
		idx := i + 1
		p := Parameter{Index: idx}
		pv := reflect.ValueOf(&p).Elem()
		if err := scanKeywordFields(pv, seg.kv, idx); err != nil {
			return nil, err
		}
		if err := validate.Struct(p); err != nil {
			return nil, fmt.Errorf("%w: parameter %d: %v", ErrMissingRequiredKeyword, idx, err)
		}
		if p.Amplification != "" {
			decades, offset, err := parseAmplification(p.Amplification)
			if err != nil {
				return nil, fmt.Errorf("fcs: parameter %d: %w", idx, err)
			}
			p.AmplificationDecades = decades
			p.AmplificationOffset = offset
		}
		m.Parameters[i] = p
	}

	perm, err := parseByteOrd(m.ByteOrd)
	if err != nil {
		return nil, err
	}
	m.ByteOrderPermutation = perm

	// $TOT is required in 3.0/3.1 regardless of $DATATYPE, and in 2.0 for
	// I/A (neither has a single fixed per-event width to derive a count
	// from). Only a 2.0 F/D file may omit it, leaving NumEvents at 0 to
	// be derived from the DATA segment length once the element width is
	// known (spec.md §3 invariant 2).
	totValue, hasTot := seg.kv[normalizeKeyword("$TOT")]
	if !hasTot || totValue == "" {
		if m.Version != "2.0" || m.DataType == "I" || m.DataType == "A" {
			return nil, missingKeyword("$TOT")
		}
	}

	return m, nil
}

// scanKeywordFields fills the exported fields of v (a struct) from kv,
// using each field's `keyword` tag. paramIndex < 0 means "not a
// per-parameter struct"; otherwise "%d" in the tag is substituted with
// paramIndex, following the $PnX convention.
func scanKeywordFields(v reflect.Value, kv map[string]string, paramIndex int) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("keyword")
		if tag == "" {
			continue
		}

		keyword := tag
		if paramIndex >= 0 {
			if !strings.Contains(tag, "%d") {
				continue
			}
			keyword = fmt.Sprintf(tag, paramIndex)
		}
		keyword = normalizeKeyword(keyword)

		value, ok := kv[keyword]
		if !ok || value == "" {
			continue
		}

		if err := setField(v.Field(i), value); err != nil {
			return fmt.Errorf("fcs: cannot parse %q for keyword %s: %w", value, keyword, err)
		}
	}
	return nil
}

func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int64:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return err
		}
		field.SetInt(int64(n))
	case reflect.Ptr:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported pointer field type %s", field.Type())
		}
		v := value
		field.Set(reflect.ValueOf(&v))
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}

// parseAmplification parses a $PnE value of the form "decades,offset".
func parseAmplification(value string) (decades, offset float64, err error) {
	parts := splitTrimmed(value, ',')
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("$PnE must have 2 comma-separated fields, got %q", value)
	}
	decades, err = strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid $PnE decades %q: %w", parts[0], err)
	}
	offset, err = strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid $PnE offset %q: %w", parts[1], err)
	}
	return decades, offset, nil
}

// parseByteOrd decodes $BYTEORD into a 1-based byte-index permutation,
// least-significant byte first. Spec.md §4.3: for 3.1 numeric data the
// only conformant values are "1,2,3,4" (little-endian) and "4,3,2,1"
// (big-endian); 2.0/3.0 allow arbitrary permutations of 1..n, which this
// function also accepts so the integer decoder can honor them.
func parseByteOrd(value string) ([]int, error) {
	parts := splitTrimmed(value, ',')
	if len(parts) == 0 {
		return nil, missingKeyword("$BYTEORD")
	}
	perm := make([]int, len(parts))
	seen := make(map[int]bool, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > len(parts) || seen[n] {
			return nil, fmt.Errorf("fcs: invalid $BYTEORD %q", value)
		}
		perm[i] = n
		seen[n] = true
	}
	return perm, nil
}

func translateValidationError(err error, m *Metadata) error {
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Field() {
		case "DataType":
			if fe.Tag() == "required" {
				return missingKeyword("$DATATYPE")
			}
			return &DataTypeError{Value: m.DataType}
		case "Mode":
			if fe.Tag() == "required" {
				return missingKeyword("$MODE")
			}
			return fmt.Errorf("%w: $MODE=%q", ErrUnsupportedMode, m.Mode)
		default:
			return fmt.Errorf("%w: %s", ErrMissingRequiredKeyword, fe.Field())
		}
	}
	return err
}
