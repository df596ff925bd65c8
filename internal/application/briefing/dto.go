package briefing

import (
	"time"

	"github.com/briefing/backend/internal/domain/briefing"
)

// BriefingDTO is the assembled daily briefing for one user: three
// independently sorted feeds plus assembly metadata. Feeds are never nil so
// the JSON payload always carries arrays.
type BriefingDTO struct {
	Date        string           `json:"date"`
	GeneratedAt time.Time        `json:"generated_at"`
	Emails      []briefing.Entry `json:"emails"`
	Schedule    []briefing.Entry `json:"schedule"`
	Tickets     []briefing.Entry `json:"tickets"`
	Providers   []ProviderDTO    `json:"providers"`
}

// ProviderDTO reports the per-provider outcome of one assembly
type ProviderDTO struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Fetched bool   `json:"fetched"`
}
