package ondemand

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// IdentitySourceMap returns a map that sends the first column of every line
// of code back to the same line of source id. It stands in for the combined
// map when no host pipeline produced one.
func IdentitySourceMap(id, code string) *SourceMap {
	lines := strings.Count(code, "\n") + 1

	var mappings strings.Builder

	mappings.Grow(len("AAAA") + (lines-1)*len(";AACA"))
	mappings.WriteString("AAAA")

	for range lines - 1 {
		mappings.WriteString(";AACA")
	}

	return &SourceMap{
		Version:        3,
		Sources:        []string{id},
		SourcesContent: []string{code},
		Names:          []string{},
		Mappings:       mappings.String(),
	}
}

// InlineComment renders m as a sourceMappingURL comment with a base64 data URL.
func (m *SourceMap) InlineComment() (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode source map: %w", err)
	}

	return "//# sourceMappingURL=data:application/json;base64," + base64.StdEncoding.EncodeToString(data), nil
}
