// Package knowledge is the static policy knowledge base used to ground
// onboarding help and score explanations.
package knowledge

import "strings"

type Document struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Keywords []string `json:"keywords"`
	Content  string   `json:"content"`
}

const (
	DocFairLending = "RBI-FLP-001"
	DocDataPrivacy = "DPDPA-2023-Summary"
	DocCoachRole   = "AF-Coach-Role"
)

var documents = []Document{
	{
		ID:       DocFairLending,
		Title:    "RBI Fair Lending Practices",
		Keywords: []string{"fair", "lending", "rbi", "guidelines", "inclusive", "score", "scoring", "rules"},
		Content:  "The Reserve Bank of India's Fair Lending Practices Code emphasizes that lending decisions should be based on a holistic assessment of a borrower's repayment capacity. This includes considering alternative data sources beyond traditional credit history, especially for new-to-credit customers. The goal is to ensure non-discriminatory and transparent lending practices that promote financial inclusion.",
	},
	{
		ID:       DocDataPrivacy,
		Title:    "Data Privacy (DPDPA 2023)",
		Keywords: []string{"data", "privacy", "secure", "safe", "permission", "consent", "dpdpa", "share"},
		Content:  "The Digital Personal Data Protection Act, 2023, grants individuals control over their personal data. For financial services, this means your data can only be collected with explicit consent for a specific purpose (like calculating a loan score). It must be kept secure, and you have the right to know how it's used. Your data is not shared with third parties without your permission.",
	},
	{
		ID:       DocCoachRole,
		Title:    "AI Coach Mitra Principles",
		Keywords: []string{"coach", "help", "tips", "advice", "support", "mitra"},
		Content:  "Coach Mitra's role is to provide educational support and guidance. This includes offering personalized savings tips, explaining financial concepts in simple terms, and sending encouraging reminders. The coach does not give direct financial advice but empowers users to make informed decisions. All interactions are aimed at improving the user's long-term financial wellness.",
	},
}

// Documents returns the knowledge base in retrieval order.
func Documents() []Document {
	out := make([]Document, len(documents))
	copy(out, documents)
	return out
}

// Get returns the document with the given ID.
func Get(id string) (Document, bool) {
	for _, d := range documents {
		if d.ID == id {
			return d, true
		}
	}
	return Document{}, false
}

// Retrieve picks the document whose keywords best overlap the query. A
// keyword counts once when any query word contains it or is contained by
// it. Ties keep the earlier document; no overlap at all falls back to the
// privacy summary for data questions and the lending code otherwise.
func Retrieve(query string) Document {
	words := strings.Fields(strings.ToLower(query))

	best, bestScore := documents[0], 0
	for _, doc := range documents {
		score := 0
		for _, kw := range doc.Keywords {
			for _, w := range words {
				if strings.Contains(w, kw) || strings.Contains(kw, w) {
					score++
					break
				}
			}
		}
		if score > bestScore {
			best, bestScore = doc, score
		}
	}

	if bestScore > 0 {
		return best
	}
	if strings.Contains(query, "data") {
		d, _ := Get(DocDataPrivacy)
		return d
	}
	d, _ := Get(DocFairLending)
	return d
}
