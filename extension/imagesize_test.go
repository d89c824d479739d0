package extension_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yuin/goldmark"

	"github.com/patrickward/livepad/extension"
)

func TestImageSize_Shorthand(t *testing.T) {
	t.Parallel()
	md := goldmark.New(goldmark.WithExtensions(extension.ImageSize))

	tests := []struct {
		name     string
		source   string
		expected string
	}{
		{
			name:     "plain path",
			source:   "![[cat.png]]\n",
			expected: `<img src="cat.png" alt="">`,
		},
		{
			name:     "pixel width",
			source:   "![[cat.png|300]]\n",
			expected: `<img src="cat.png" alt="" width="300">`,
		},
		{
			name:     "percent width",
			source:   "![[cat.png|50%]]\n",
			expected: `<img src="cat.png" alt="" style="width:50%;">`,
		},
		{
			name:     "trailing size directive",
			source:   "![cat](cat.png)![[|120]]\n",
			expected: `<img src="cat.png" alt="cat" width="120">`,
		},
		{
			name:     "size in alt text",
			source:   "![[|70%]](cat.png)\n",
			expected: `<img src="cat.png" alt="" style="width:70%;">`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := render(t, md, tt.source)
			assert.Contains(t, out, tt.expected)
		})
	}
}

func TestImageSize_KeepsPositions(t *testing.T) {
	t.Parallel()
	md := goldmark.New(goldmark.WithExtensions(extension.ImageSize, extension.SourcePos))

	out := render(t, md, "intro\n\n![[cat.png|300]]\n")

	assert.Contains(t, out, `<img src="cat.png" alt="" width="300" data-pos-start="3" data-pos-end="3">`)
}

func TestImageSize_IgnoresCode(t *testing.T) {
	t.Parallel()
	md := goldmark.New(goldmark.WithExtensions(extension.ImageSize))

	out := render(t, md, "`![[cat.png]]`\n")

	assert.NotContains(t, out, "<img")
}
