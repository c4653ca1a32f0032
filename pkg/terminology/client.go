// Package terminology provides clients for the external drug terminology
// service used as a fallback when a medication name is not in the local
// dictionary. The service is best-effort by contract: unreachable, slow or
// empty responses degrade to "unresolved" at the caller, never to a crash.
package terminology

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Concept is one candidate canonical identity returned by the name-search
// endpoint.
type Concept struct {
	ConceptID string `json:"concept_id"`
	Name      string `json:"name"`
	Score     int    `json:"score"`
}

// ConceptDetails is the class metadata returned by the details endpoint for
// a canonical concept id.
type ConceptDetails struct {
	ConceptID          string   `json:"concept_id"`
	Name               string   `json:"name"`
	PharmacologicClass string   `json:"pharmacologic_class,omitempty"`
	DoseForms          []string `json:"dose_forms,omitempty"`
}

// Config represents configuration for the terminology API client.
type Config struct {
	BaseURL    string        `json:"base_url"`
	Timeout    time.Duration `json:"timeout"`
	RateLimit  int           `json:"rate_limit"` // requests per second
	MaxRetries int           `json:"max_retries"`
}

// RxNavClient talks to an RxNorm-shaped terminology service (approximate
// name search plus per-concept property and class lookups).
type RxNavClient struct {
	baseURL    string
	httpClient *http.Client
	rateLimit  *rate.Limiter
}

// searchResponse mirrors the approximateTerm JSON shape.
type searchResponse struct {
	ApproximateGroup struct {
		Candidate []struct {
			RxCUI string `json:"rxcui"`
			Score string `json:"score"`
			Name  string `json:"name"`
		} `json:"candidate"`
	} `json:"approximateGroup"`
}

// propertiesResponse mirrors the rxcui properties JSON shape.
type propertiesResponse struct {
	Properties struct {
		RxCUI string `json:"rxcui"`
		Name  string `json:"name"`
		TTY   string `json:"tty"`
	} `json:"properties"`
}

// classResponse mirrors the byRxcui drug-class JSON shape.
type classResponse struct {
	ClassDrugInfoList struct {
		ClassDrugInfo []struct {
			ClassItem struct {
				ClassName string `json:"className"`
				ClassType string `json:"classType"`
			} `json:"rxclassMinConceptItem"`
		} `json:"rxclassDrugInfo"`
	} `json:"rxclassDrugInfoList"`
}

// NewRxNavClient creates a new terminology API client.
func NewRxNavClient(config Config) *RxNavClient {
	if config.BaseURL == "" {
		config.BaseURL = "https://rxnav.nlm.nih.gov"
	}
	if config.Timeout == 0 {
		config.Timeout = 3 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 10
	}

	return &RxNavClient{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimit: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

// SearchConcepts searches for candidate canonical identities for a free-text
// drug name, best match first.
func (c *RxNavClient) SearchConcepts(ctx context.Context, name string) ([]Concept, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("drug name cannot be empty")
	}

	if err := c.rateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	params := url.Values{
		"term":       {name},
		"maxEntries": {"5"},
	}
	searchURL := fmt.Sprintf("%s/REST/approximateTerm.json?%s", c.baseURL, params.Encode())

	var parsed searchResponse
	if err := c.getJSON(ctx, searchURL, &parsed); err != nil {
		return nil, fmt.Errorf("failed to search terminology for %q: %w", name, err)
	}

	concepts := make([]Concept, 0, len(parsed.ApproximateGroup.Candidate))
	seen := make(map[string]bool)
	for _, candidate := range parsed.ApproximateGroup.Candidate {
		if candidate.RxCUI == "" || seen[candidate.RxCUI] {
			continue
		}
		seen[candidate.RxCUI] = true
		score := 0
		fmt.Sscanf(candidate.Score, "%d", &score)
		concepts = append(concepts, Concept{
			ConceptID: candidate.RxCUI,
			Name:      candidate.Name,
			Score:     score,
		})
	}

	return concepts, nil
}

// GetConceptDetails fetches the display name and pharmacologic class for a
// canonical concept id. A missing class is not an error; the service does
// not classify every concept.
func (c *RxNavClient) GetConceptDetails(ctx context.Context, conceptID string) (*ConceptDetails, error) {
	conceptID = strings.TrimSpace(conceptID)
	if conceptID == "" {
		return nil, fmt.Errorf("concept id cannot be empty")
	}

	if err := c.rateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	propURL := fmt.Sprintf("%s/REST/rxcui/%s/properties.json", c.baseURL, url.PathEscape(conceptID))

	var props propertiesResponse
	if err := c.getJSON(ctx, propURL, &props); err != nil {
		return nil, fmt.Errorf("failed to fetch properties for concept %s: %w", conceptID, err)
	}
	if props.Properties.RxCUI == "" {
		return nil, fmt.Errorf("concept %s not found in terminology service", conceptID)
	}

	details := &ConceptDetails{
		ConceptID: props.Properties.RxCUI,
		Name:      strings.ToLower(props.Properties.Name),
	}

	// Class lookup is optional metadata; failures degrade to an unclassified
	// concept rather than an error.
	classURL := fmt.Sprintf("%s/REST/rxclass/class/byRxcui.json?%s", c.baseURL,
		url.Values{"rxcui": {conceptID}}.Encode())

	var classes classResponse
	if err := c.getJSON(ctx, classURL, &classes); err == nil {
		for _, info := range classes.ClassDrugInfoList.ClassDrugInfo {
			if info.ClassItem.ClassName != "" {
				details.PharmacologicClass = strings.ToLower(info.ClassItem.ClassName)
				break
			}
		}
	}

	return details, nil
}

// getJSON executes a GET request and decodes the JSON response body.
func (c *RxNavClient) getJSON(ctx context.Context, requestURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "medguard-interaction-server/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("terminology API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse JSON response: %w", err)
	}

	return nil
}
