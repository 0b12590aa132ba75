package content

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ToString renders blocks as a single message body. Relative artifact URLs
// are resolved against baseURL. Blocks are separated by a blank line.
// Resource links and blocks that render empty are left out.
func ToString(blocks []Block, baseURL string) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		switch b.Type {
		case TypeText:
			if b.Text != "" {
				parts = append(parts, b.Text)
			}
		case TypeImage:
			parts = append(parts, fmt.Sprintf("![](%s)", resolveURL(baseURL, b.URL)))
		case TypeAudio:
			parts = append(parts, fmt.Sprintf(`<resource type="audio" url="%s" />`, resolveURL(baseURL, b.URL)))
		case TypeResource:
			data, err := json.Marshal(b.Resource)
			if err != nil {
				continue
			}
			parts = append(parts, fmt.Sprintf(`<resource type="resource">%s</resource>`, data))
		case TypeError:
			parts = append(parts, fmt.Sprintf("<error>%s</error>", b.Error))
		}
	}
	return strings.Join(parts, "\n\n")
}

func resolveURL(baseURL, u string) string {
	if baseURL == "" || strings.Contains(u, "://") {
		return u
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(u, "/")
}
