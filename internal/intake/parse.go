package intake

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/erazemk/bookbin/internal/isbn"
	"github.com/erazemk/bookbin/internal/model"
)

var separators = regexp.MustCompile(`[\s,]+`)

// ParseLine reads a scanner line such as "C001 9781234567890 USED" or
// "I004,9780123456789,NEW". Tokens may come in any order.
func (r *Recorder) ParseLine(line string) (Input, error) {
	var in Input
	for _, part := range separators.Split(strings.ToUpper(strings.TrimSpace(line)), -1) {
		switch {
		case part == "":
		case in.Bin == "" && r.bin.MatchString(part):
			in.Bin = part
		case in.Identifier == "" && isbn.Validate(part):
			in.Identifier = part
		case in.Condition == "" && model.Condition(part).Valid():
			in.Condition = part
		}
	}
	if in.Bin == "" || in.Identifier == "" || in.Condition == "" {
		return in, fmt.Errorf("expected bin, identifier and condition in %q", line)
	}
	in.Quantity = 1
	return in, nil
}

// ParseDimensions reads "major;minor;length;depth;width", e.g.
// "0;750;23;2;15".
func ParseDimensions(s string) (model.Dimensions, error) {
	parts := strings.Split(strings.TrimSpace(s), ";")
	if len(parts) != 5 {
		return model.Dimensions{}, fmt.Errorf("expected 5 values separated by ';', got %q", s)
	}

	var vals [5]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(p), ",", "."), 64)
		if err != nil || v < 0 {
			return model.Dimensions{}, fmt.Errorf("invalid dimension %q", p)
		}
		vals[i] = v
	}
	return model.Dimensions{
		WeightMajor: int(vals[0]),
		WeightMinor: int(vals[1]),
		Length:      vals[2],
		Depth:       vals[3],
		Width:       vals[4],
	}, nil
}
