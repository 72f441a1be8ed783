package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"kredmitra/internal/models"
)

// userIndexMapping stores lowercased names and mobiles as keywords so both
// can be matched with substring wildcards.
const userIndexMapping = `{
  "mappings": {
    "properties": {
      "mobile":       {"type": "keyword"},
      "fullName":     {"type": "text"},
      "fullNameLower": {"type": "keyword"},
      "creditScore":  {"type": "integer"},
      "riskLevel":    {"type": "keyword"},
      "loanStatus":   {"type": "keyword"},
      "lastActivity": {"type": "date", "format": "yyyy-MM-dd", "ignore_malformed": true}
    }
  }
}`

const maxSearchHits = 100

type userDocument struct {
	Mobile        string `json:"mobile"`
	FullName      string `json:"fullName"`
	FullNameLower string `json:"fullNameLower"`
	CreditScore   int    `json:"creditScore"`
	RiskLevel     string `json:"riskLevel"`
	LoanStatus    string `json:"loanStatus"`
	LastActivity  string `json:"lastActivity,omitempty"`
}

// UserIndex keeps a searchable copy of user records in Elasticsearch.
type UserIndex struct {
	client *elasticsearch.Client
	index  string
}

func NewUserIndex(client *elasticsearch.Client, index string) *UserIndex {
	return &UserIndex{client: client, index: index}
}

// Mapping returns the index mapping body.
func (x *UserIndex) Mapping() string {
	return userIndexMapping
}

func (x *UserIndex) Name() string {
	return x.index
}

// IndexUser writes rec under its mobile number.
func (x *UserIndex) IndexUser(ctx context.Context, rec *models.UserRecord) error {
	body, err := json.Marshal(userDocument{
		Mobile:        rec.Mobile,
		FullName:      rec.FullName(),
		FullNameLower: strings.ToLower(rec.FullName()),
		CreditScore:   rec.CreditScore,
		RiskLevel:     rec.RiskLevel,
		LoanStatus:    rec.LoanStatus,
		LastActivity:  rec.LastActivity,
	})
	if err != nil {
		return fmt.Errorf("encode user document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      x.index,
		DocumentID: rec.Mobile,
		Body:       bytes.NewReader(body),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, x.client)
	if err != nil {
		return fmt.Errorf("index user %s: %w", rec.Mobile, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index user %s: %s", rec.Mobile, res.String())
	}
	return nil
}

func escapeWildcard(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)
	return r.Replace(term)
}

func buildSearchQuery(term string) map[string]interface{} {
	pattern := "*" + escapeWildcard(strings.ToLower(term)) + "*"
	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"should": []interface{}{
					map[string]interface{}{"wildcard": map[string]interface{}{"fullNameLower": map[string]interface{}{"value": pattern}}},
					map[string]interface{}{"wildcard": map[string]interface{}{"mobile": map[string]interface{}{"value": pattern}}},
				},
				"minimum_should_match": 1,
			},
		},
		"_source": []string{"mobile"},
	}
}

// Search returns the mobile numbers of users whose name or mobile contains
// term.
func (x *UserIndex) Search(ctx context.Context, term string) ([]string, error) {
	body, _ := json.Marshal(buildSearchQuery(term))
	size := maxSearchHits
	req := esapi.SearchRequest{
		Index: []string{x.index},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}

	res, err := req.Do(ctx, x.client)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search users: %s", res.String())
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source userDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	mobiles := make([]string, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		mobiles = append(mobiles, h.Source.Mobile)
	}
	return mobiles, nil
}
