package advisor

import "google.golang.org/genai"

func str(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: desc}
}

func integer(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeInteger, Description: desc}
}

func object(required []string, props map[string]*genai.Schema) *genai.Schema {
	return &genai.Schema{Type: genai.TypeObject, Properties: props, Required: required}
}

func arrayOf(items *genai.Schema) *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: items}
}

var (
	structuredDataSchema = object(
		[]string{"incomeRegularity", "repaymentHistory", "financialShockIndicators", "behavioralMetrics", "lifeEventSignals"},
		map[string]*genai.Schema{
			"incomeRegularity":         str("How regularly income arrives, e.g. 'Daily but variable'."),
			"repaymentHistory":         str("Past or current loans and how they are repaid."),
			"financialShockIndicators": str("Unexpected events that hit finances, or a lack of savings."),
			"behavioralMetrics":        str("Ratings, completion rates or community trust signals."),
			"lifeEventSignals":         str("Upcoming events such as sowing season, festivals or weddings."),
		},
	)

	questionsSchema = object([]string{"questions"}, map[string]*genai.Schema{
		"questions": arrayOf(str("")),
	})

	scoreSchema = object(
		[]string{"finalScore", "consistencyScore", "communityTrustScore", "resilienceScore", "scoreRationale", "fraudRisk", "fraudRationale", "verificationStep"},
		map[string]*genai.Schema{
			"finalScore":            integer("Overall trust score, 300-850."),
			"consistencyScore":      integer("300-850."),
			"communityTrustScore":   integer("300-850."),
			"resilienceScore":       integer("300-850."),
			"scoreRationale":        str(""),
			"fraudRisk":             {Type: genai.TypeString, Enum: []string{"Low", "Medium", "High"}},
			"fraudRationale":        str(""),
			"verificationStep":      str("A practical next step for a human reviewer."),
			"dynamicRiskAdjustment": str("Time-sensitive factors."),
		},
	)

	loansSchema = object([]string{"loans"}, map[string]*genai.Schema{
		"loans": arrayOf(object([]string{"name", "amount", "repayment", "description"}, map[string]*genai.Schema{
			"name":        str(""),
			"amount":      integer("Loan amount in rupees."),
			"repayment":   str("Repayment terms."),
			"description": str(""),
		})),
	})

	geospatialSchema = object([]string{"prospectiveYieldScore", "rationale"}, map[string]*genai.Schema{
		"prospectiveYieldScore": integer("1-100."),
		"rationale":             str(""),
	})

	simulationSchema = object([]string{"newScore", "rationale"}, map[string]*genai.Schema{
		"newScore":  integer("300-850."),
		"rationale": str(""),
	})

	startersSchema = object([]string{"starters"}, map[string]*genai.Schema{
		"starters": arrayOf(str("")),
	})

	feedbackSchema = object([]string{"category", "sentiment", "summary"}, map[string]*genai.Schema{
		"category":  str("e.g. UI/UX, Loan Terms, AI Coach."),
		"sentiment": {Type: genai.TypeString, Enum: []string{"Positive", "Negative", "Neutral"}},
		"summary":   str("One sentence."),
	})

	budgetSchema = object([]string{"budget"}, map[string]*genai.Schema{
		"budget": arrayOf(object([]string{"category", "amount"}, map[string]*genai.Schema{
			"category": str(""),
			"amount":   integer(""),
		})),
	})

	savingsPlanSchema = object([]string{"goal", "amount", "steps"}, map[string]*genai.Schema{
		"goal":   str(""),
		"amount": integer(""),
		"steps": arrayOf(object([]string{"title", "description"}, map[string]*genai.Schema{
			"title":       str(""),
			"description": str(""),
		})),
	})

	diarySchema = object([]string{"summary", "sentiment"}, map[string]*genai.Schema{
		"summary":   str("One sentence."),
		"sentiment": {Type: genai.TypeString, Enum: []string{"Positive", "Negative", "Neutral"}},
	})

	reschedulingSchema = object([]string{"intro", "options"}, map[string]*genai.Schema{
		"intro":   str(""),
		"options": arrayOf(str("")),
	})

	interventionSchema = object([]string{"needsHelp", "suggestion"}, map[string]*genai.Schema{
		"needsHelp":  {Type: genai.TypeBoolean},
		"suggestion": str(""),
	})
)
