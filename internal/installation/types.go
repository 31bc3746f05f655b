package installation

import "time"

// ParentRoot marks an installation with no parent (a top-level site).
const ParentRoot = "ROOT"

// Installation status values.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Installation represents a managed site owning rooms and devices.
type Installation struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Cluster is the grouping name; defaults to the installation name.
	Cluster string `json:"cluster,omitempty"`

	// UserID is the owning user. Immutable after creation.
	UserID string `json:"user_id"`

	Route     string  `json:"route,omitempty"`
	BoxID     string  `json:"box_id,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	// Parent is "ROOT" for top-level sites or the ID of another installation.
	Parent string `json:"parent"`

	// IsCluster defaults to true iff Parent == "ROOT".
	IsCluster bool `json:"is_cluster"`

	Status string `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Room represents a physical space belonging to exactly one installation.
type Room struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	InstallationID string    `json:"installation_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
