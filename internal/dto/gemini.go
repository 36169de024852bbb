package dto

type GeminiAPIRequest struct {
	Contents []Content `json:"contents"`
}

type GeminiAPIResponse struct {
	Candidates []Candidate `json:"candidates"`
}

// Candidate is a candidate response from the Gemini API.
type Candidate struct {
	Content Content `json:"content"`
}

type Content struct {
	Parts []Part `json:"parts"`
}

type Part struct {
	Text string `json:"text"`
}

// RunCommentary is the structured commentary the model returns for a
// finished run.
type RunCommentary struct {
	Headline    string            `json:"headline"`
	Assessment  string            `json:"assessment"`
	KeyInsights map[string]string `json:"key_insights"`
	Caveats     []string          `json:"caveats"`
}
