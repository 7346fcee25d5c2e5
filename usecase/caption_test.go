package usecase

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeHashtags(t *testing.T) {
	tests := []struct {
		name     string
		caption  string
		tags     []string
		max      int
		expected []string
	}{
		{"adds hash and lowercases", "", []string{"Sunset", "#Beach"}, 30, []string{"#sunset", "#beach"}},
		{"strips punctuation", "", []string{"  rock'n'roll! ", "new-york"}, 30, []string{"#rocknroll", "#newyork"}},
		{"dedupes", "", []string{"go", "#Go", "GO"}, 30, []string{"#go"}},
		{"skips tags in caption", "Hello #travel", []string{"travel", "food"}, 30, []string{"#food"}},
		{"drops empty", "", []string{"#", "!!!", ""}, 30, nil},
		{"caption tags count toward cap", "#a #b", []string{"c", "d"}, 3, []string{"#c"}},
		{"unicode letters", "", []string{"Café"}, 30, []string{"#café"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeHashtags(tt.caption, tt.tags, tt.max))
		})
	}
}

func TestNormalizeHashtags_CapsAtThirty(t *testing.T) {
	var tags []string
	for i := 0; i < 40; i++ {
		tags = append(tags, fmt.Sprintf("tag%d", i))
	}
	out := NormalizeHashtags("", tags, 0)
	assert.Len(t, out, 30)
	assert.Equal(t, "#tag29", out[29])
}

func TestComposeCaption(t *testing.T) {
	assert.Equal(t, "Summer drop\n\n#sale #new", ComposeCaption(" Summer drop ", []string{"Sale", "new"}, 30, 2200))
	assert.Equal(t, "#sale", ComposeCaption("", []string{"sale"}, 30, 2200))
	assert.Equal(t, "plain", ComposeCaption("plain", nil, 30, 2200))
}

func TestComposeCaption_RuneLimit(t *testing.T) {
	long := strings.Repeat("é", 2195)
	out := ComposeCaption(long, []string{"toolong"}, 30, 2200)
	assert.Equal(t, long, out)

	out = ComposeCaption(strings.Repeat("x", 3000), nil, 30, 2200)
	assert.Len(t, []rune(out), 2200)
}
