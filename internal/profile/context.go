package profile

import "strings"

const notProvided = "Not provided"

// whoYouAreHint steers retrieval toward the creator's concrete background
// so rewrites can replace generic field references with their specifics.
const whoYouAreHint = "IMPORTANT: Extract the creator's field/industry, university/education, and career path from the bio above. Use this information to replace any generic field references in scripts."

// RenderContext renders the answers as a single prose block suitable for
// embedding into a generation prompt. Each present section becomes a titled
// block of labeled lines; blank fields within a present section read
// "Not provided". Absent sections are omitted entirely.
func RenderContext(a Answers) string {
	var blocks []string
	for _, s := range a.sections() {
		var sb strings.Builder
		sb.WriteString(s.Title)
		sb.WriteString(":")
		for _, f := range s.Fields {
			sb.WriteString("\n- ")
			sb.WriteString(f.Label)
			sb.WriteString(": ")
			sb.WriteString(orNotProvided(f.Value))
		}
		blocks = append(blocks, sb.String())
	}
	return strings.Join(blocks, "\n\n")
}

// Chunk is one section rendered for ingestion into an external memory
// store, tagged so retrieval can identify its origin.
type Chunk struct {
	Content  string
	Metadata map[string]any
}

// BuildChunks renders each present section as a standalone semantic chunk.
// One chunk per section keeps retrieval granular: a repurposing query about
// tone pulls the voice section without dragging the whole profile along.
func BuildChunks(a Answers) []Chunk {
	var chunks []Chunk
	for _, s := range a.sections() {
		var sb strings.Builder
		sb.WriteString(s.Title)
		sb.WriteString(":")
		for _, f := range s.Fields {
			sb.WriteString("\n")
			sb.WriteString(f.Label)
			sb.WriteString(": ")
			sb.WriteString(orNotProvided(f.Value))
		}
		if s.Key == "whoYouAre" {
			sb.WriteString("\n\n")
			sb.WriteString(whoYouAreHint)
		}
		chunks = append(chunks, Chunk{
			Content:  sb.String(),
			Metadata: map[string]any{"section": s.Key, "type": "profile"},
		})
	}
	return chunks
}

func orNotProvided(v string) string {
	if strings.TrimSpace(v) == "" {
		return notProvided
	}
	return v
}
