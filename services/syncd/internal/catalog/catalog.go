// Package catalog is a read-only client for the upstream movie catalog API.
// The daemon proxies it for the UI so catalog reads and the local sync state
// come from one place.
package catalog

// Taxonomy is a category or country facet.
type Taxonomy struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Movie is a catalog list entry.
type Movie struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Slug           string     `json:"slug"`
	OriginName     string     `json:"origin_name,omitempty"`
	Type           string     `json:"type,omitempty"`
	ThumbURL       string     `json:"thumb_url,omitempty"`
	PosterURL      string     `json:"poster_url,omitempty"`
	Year           int        `json:"year"`
	Quality        string     `json:"quality,omitempty"`
	Lang           string     `json:"lang,omitempty"`
	EpisodeCurrent string     `json:"episode_current,omitempty"`
	Time           string     `json:"time,omitempty"`
	Categories     []Taxonomy `json:"categories,omitempty"`
	Countries      []Taxonomy `json:"countries,omitempty"`
	TMDBRating     float64    `json:"tmdb_rating"`
	IMDBRating     float64    `json:"imdb_rating"`
}

// Episode is one playable item on a server.
type Episode struct {
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	LinkEmbed string `json:"link_embed,omitempty"`
	LinkM3U8  string `json:"link_m3u8,omitempty"`
}

// EpisodeServer groups a detail page's episodes by hosting server.
type EpisodeServer struct {
	ServerName string    `json:"server_name"`
	Items      []Episode `json:"items"`
}

// MovieDetail is the full detail-page record.
type MovieDetail struct {
	Movie
	Content      string          `json:"content,omitempty"`
	TrailerURL   string          `json:"trailer_url,omitempty"`
	Actors       []string        `json:"actors,omitempty"`
	Directors    []string        `json:"directors,omitempty"`
	Status       string          `json:"status,omitempty"`
	View         int64           `json:"view"`
	EpisodeTotal string          `json:"episode_total,omitempty"`
	Episodes     []EpisodeServer `json:"episodes,omitempty"`
}

// Page is one page of a movie listing.
type Page struct {
	Movies            []Movie `json:"movies"`
	CurrentPage       int     `json:"current_page"`
	TotalItems        int     `json:"total_items"`
	TotalItemsPerPage int     `json:"total_items_per_page"`
}

// Filters narrows a listing or search by facet slugs.
type Filters struct {
	Category string
	Country  string
	Year     string
}
