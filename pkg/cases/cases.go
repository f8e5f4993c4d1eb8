package cases

import (
	"crypto/md5"
	_ "embed"
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default_cases.yaml
var defaultDocument []byte

// Case is a single named query workload.
type Case struct {
	ID               string `yaml:"id"`
	Query            string `yaml:"query"`
	SignalExpression string `yaml:"signal_expression,omitempty"`
}

// Set is an ordered, validated collection of cases plus a short content
// hash derived from the raw document bytes. Document order is execution
// order. A Set is immutable once loaded.
type Set struct {
	Cases []Case
	Hash  string
}

// document is the on-disk case-set format.
type document struct {
	Cases []Case `yaml:"cases"`
}

// Load reads and validates a case-set document. An empty path loads the
// embedded default document, so the tool works independent of the working
// directory.
func Load(path string) (*Set, error) {
	data := defaultDocument
	source := "default case set"

	if path != "" {
		var err error

		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading case set: %w", err)
		}

		source = path
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing case set %s: %w", source, err)
	}

	if len(doc.Cases) == 0 {
		return nil, fmt.Errorf("case set %s contains no cases", source)
	}

	seenIDs := make(map[string]struct{}, len(doc.Cases))

	for i, c := range doc.Cases {
		if c.ID == "" {
			return nil, fmt.Errorf("case set %s: case %d: id is required", source, i)
		}

		if c.Query == "" {
			return nil, fmt.Errorf("case set %s: case %q: query is required", source, c.ID)
		}

		if _, exists := seenIDs[c.ID]; exists {
			return nil, fmt.Errorf("case set %s: duplicate case id %q", source, c.ID)
		}

		seenIDs[c.ID] = struct{}{}
	}

	return &Set{
		Cases: doc.Cases,
		Hash:  computeHash(data),
	}, nil
}

// computeHash derives the 4-character case-set identity token from the raw
// document bytes. The token lets humans correlate results produced against
// the same case-set version; it is not a content authenticator.
func computeHash(data []byte) string {
	sum := md5.Sum(data)
	digest := hex.EncodeToString(sum[:])

	return string([]byte{digest[4], digest[8], digest[16], digest[24]})
}
