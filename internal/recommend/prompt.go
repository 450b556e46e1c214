package recommend

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/FarelZIKRI/matchhub/internal/store"
)

// Profile is the business profile submitted with a recommendation request.
type Profile struct {
	BusinessName   string
	Niche          string
	Budget         *int64
	TargetAudience string
	Location       string
	CampaignGoal   string
}

// promptCandidate is the trimmed candidate view embedded in the ranking
// request, so the model never sees fields it should not weigh.
type promptCandidate struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Niche          string  `json:"niche"`
	Platform       string  `json:"platform"`
	Followers      int64   `json:"followers"`
	EngagementRate float64 `json:"engagement_rate"`
	PricePerPost   int64   `json:"price_per_post"`
	Location       string  `json:"location"`
	Rating         float64 `json:"rating"`
	TotalOrders    int64   `json:"total_orders"`
}

// BuildPrompt formats the structured ranking request: the business profile,
// the JSON-serialized candidate list, and instructions for a strict JSON
// array reply with the top 5 matches.
func BuildPrompt(profile Profile, candidates []store.Candidate) (string, error) {
	list := make([]promptCandidate, 0, len(candidates))
	for _, c := range candidates {
		list = append(list, promptCandidate{
			ID:             c.ID,
			Name:           c.Name,
			Niche:          c.Niche,
			Platform:       c.Platform,
			Followers:      c.Followers,
			EngagementRate: c.EngagementRate,
			PricePerPost:   c.PricePerPost,
			Location:       c.Location,
			Rating:         c.Rating,
			TotalOrders:    c.TotalOrders,
		})
	}
	encoded, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return "", fmt.Errorf("recommend: encode candidates: %w", err)
	}

	var b strings.Builder
	b.WriteString("Anda adalah AI recommendation engine untuk platform MatchHub.\n")
	b.WriteString("Berdasarkan profil SME berikut:\n")
	fmt.Fprintf(&b, "- Nama Bisnis: %s\n", orNA(profile.BusinessName))
	fmt.Fprintf(&b, "- Niche: %s\n", orNA(profile.Niche))
	fmt.Fprintf(&b, "- Budget: Rp %s\n", budgetOrNA(profile.Budget))
	fmt.Fprintf(&b, "- Target Audience: %s\n", orNA(profile.TargetAudience))
	fmt.Fprintf(&b, "- Lokasi: %s\n", orNA(profile.Location))
	fmt.Fprintf(&b, "- Tujuan Campaign: %s\n", orNA(profile.CampaignGoal))
	b.WriteString("\nDan daftar influencer berikut:\n")
	b.Write(encoded)
	b.WriteString("\n\nBerikan ranking top 5 influencer yang paling cocok beserta skor kecocokan (0-100) dan alasan singkat.\n")
	b.WriteString(`Response dalam format JSON array: [{"id": "...", "match_score": 95, "reason": "..."}]`)
	return b.String(), nil
}

func orNA(value string) string {
	if strings.TrimSpace(value) == "" {
		return "N/A"
	}
	return value
}

func budgetOrNA(budget *int64) string {
	if budget == nil {
		return "N/A"
	}
	return fmt.Sprint(*budget)
}
