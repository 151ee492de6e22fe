package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const defaultPageLimit = 24

// The API's advertised CDN domain lacks the /uploads/movies/ sub-path, so
// relative image paths always resolve against this known-good base instead.
const fallbackImageCDN = "https://img.ophim.live/uploads/movies/"

var htmlTags = regexp.MustCompile(`<[^>]*>`)

// Client talks to the upstream catalog API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://ophim1.com/v1/api"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// ListMovies pages through a listing such as "phim-moi" or "phim-bo".
func (c *Client) ListMovies(ctx context.Context, listType string, page int, f Filters, sortField string) (Page, error) {
	if listType == "" {
		listType = "phim-moi"
	}
	if sortField == "" {
		sortField = "modified.time"
	}
	params := url.Values{}
	params.Set("page", fmt.Sprintf("%d", page))
	params.Set("limit", fmt.Sprintf("%d", defaultPageLimit))
	params.Set("sort_field", sortField)
	params.Set("category", f.Category)
	params.Set("country", f.Country)
	params.Set("year", f.Year)
	return c.getPage(ctx, "/danh-sach/"+url.PathEscape(listType)+"?"+params.Encode(), page)
}

// SearchMovies runs a keyword search.
func (c *Client) SearchMovies(ctx context.Context, keyword string, page int, f Filters) (Page, error) {
	params := url.Values{}
	params.Set("keyword", keyword)
	params.Set("page", fmt.Sprintf("%d", page))
	params.Set("limit", fmt.Sprintf("%d", defaultPageLimit))
	if f.Category != "" {
		params.Set("category", f.Category)
	}
	if f.Country != "" {
		params.Set("country", f.Country)
	}
	if f.Year != "" {
		params.Set("year", f.Year)
	}
	return c.getPage(ctx, "/tim-kiem?"+params.Encode(), page)
}

// MoviesByCategory pages through one category facet.
func (c *Client) MoviesByCategory(ctx context.Context, slug string, page int) (Page, error) {
	params := url.Values{}
	params.Set("page", fmt.Sprintf("%d", page))
	params.Set("limit", fmt.Sprintf("%d", defaultPageLimit))
	return c.getPage(ctx, "/the-loai/"+url.PathEscape(slug)+"?"+params.Encode(), page)
}

// MovieDetail fetches the full record for one movie.
func (c *Client) MovieDetail(ctx context.Context, slug string) (MovieDetail, error) {
	var out struct {
		Data struct {
			Item *movieDoc `json:"item"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/phim/"+url.PathEscape(slug), &out); err != nil {
		return MovieDetail{}, err
	}
	if out.Data.Item == nil {
		return MovieDetail{}, fmt.Errorf("catalog: movie %q not found in response", slug)
	}
	return out.Data.Item.toDetail(), nil
}

// Categories lists the category taxonomy.
func (c *Client) Categories(ctx context.Context) ([]Taxonomy, error) {
	return c.getTaxonomies(ctx, "/the-loai")
}

// Countries lists the country taxonomy.
func (c *Client) Countries(ctx context.Context) ([]Taxonomy, error) {
	return c.getTaxonomies(ctx, "/quoc-gia")
}

func (c *Client) getTaxonomies(ctx context.Context, path string) ([]Taxonomy, error) {
	var out struct {
		Data struct {
			Items []Taxonomy `json:"items"`
		} `json:"data"`
	}
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Data.Items, nil
}

func (c *Client) getPage(ctx context.Context, path string, page int) (Page, error) {
	var out struct {
		Data struct {
			Items  []movieDoc `json:"items"`
			Params struct {
				Pagination struct {
					CurrentPage       int `json:"currentPage"`
					TotalItems        int `json:"totalItems"`
					TotalItemsPerPage int `json:"totalItemsPerPage"`
				} `json:"pagination"`
			} `json:"params"`
		} `json:"data"`
	}
	if err := c.get(ctx, path, &out); err != nil {
		return Page{}, err
	}

	movies := make([]Movie, 0, len(out.Data.Items))
	for _, d := range out.Data.Items {
		movies = append(movies, d.toMovie())
	}
	p := Page{
		Movies:            movies,
		CurrentPage:       out.Data.Params.Pagination.CurrentPage,
		TotalItems:        out.Data.Params.Pagination.TotalItems,
		TotalItemsPerPage: out.Data.Params.Pagination.TotalItemsPerPage,
	}
	if p.CurrentPage == 0 {
		p.CurrentPage = page
	}
	if p.TotalItemsPerPage == 0 {
		p.TotalItemsPerPage = defaultPageLimit
	}
	return p, nil
}

func (c *Client) get(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "movie-platform-syncd/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalog: status %d for %s", resp.StatusCode, path)
	}
	return json.Unmarshal(b, dst)
}

// movieDoc is the upstream wire shape for both list entries and details.
type movieDoc struct {
	ID             string `json:"_id"`
	Name           string `json:"name"`
	Slug           string `json:"slug"`
	OriginName     string `json:"origin_name"`
	Type           string `json:"type"`
	ThumbURL       string `json:"thumb_url"`
	PosterURL      string `json:"poster_url"`
	Year           int    `json:"year"`
	Quality        string `json:"quality"`
	Lang           string `json:"lang"`
	EpisodeCurrent string `json:"episode_current"`
	Time           string `json:"time"`
	Category       []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Slug string `json:"slug"`
	} `json:"category"`
	Country []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Slug string `json:"slug"`
	} `json:"country"`
	TMDB struct {
		VoteAverage float64 `json:"vote_average"`
	} `json:"tmdb"`
	IMDB struct {
		VoteAverage float64 `json:"vote_average"`
	} `json:"imdb"`

	Content      string   `json:"content"`
	TrailerURL   string   `json:"trailer_url"`
	Actor        []string `json:"actor"`
	Director     []string `json:"director"`
	Status       string   `json:"status"`
	View         int64    `json:"view"`
	EpisodeTotal string   `json:"episode_total"`
	Episodes     []struct {
		ServerName string `json:"server_name"`
		ServerData []struct {
			Name      string `json:"name"`
			Slug      string `json:"slug"`
			LinkEmbed string `json:"link_embed"`
			LinkM3U8  string `json:"link_m3u8"`
		} `json:"server_data"`
	} `json:"episodes"`
}

func (d movieDoc) toMovie() Movie {
	m := Movie{
		ID:             d.ID,
		Name:           d.Name,
		Slug:           d.Slug,
		OriginName:     d.OriginName,
		Type:           d.Type,
		ThumbURL:       resolveImage(d.ThumbURL),
		PosterURL:      resolveImage(d.PosterURL),
		Year:           d.Year,
		Quality:        d.Quality,
		Lang:           d.Lang,
		EpisodeCurrent: d.EpisodeCurrent,
		Time:           d.Time,
		TMDBRating:     d.TMDB.VoteAverage,
		IMDBRating:     d.IMDB.VoteAverage,
	}
	for _, c := range d.Category {
		m.Categories = append(m.Categories, Taxonomy{ID: c.ID, Name: c.Name, Slug: c.Slug})
	}
	for _, c := range d.Country {
		m.Countries = append(m.Countries, Taxonomy{ID: c.ID, Name: c.Name, Slug: c.Slug})
	}
	return m
}

func (d movieDoc) toDetail() MovieDetail {
	md := MovieDetail{
		Movie:        d.toMovie(),
		Content:      strings.TrimSpace(htmlTags.ReplaceAllString(d.Content, "")),
		TrailerURL:   d.TrailerURL,
		Actors:       d.Actor,
		Directors:    d.Director,
		Status:       d.Status,
		View:         d.View,
		EpisodeTotal: d.EpisodeTotal,
	}
	for _, srv := range d.Episodes {
		server := EpisodeServer{ServerName: srv.ServerName, Items: make([]Episode, 0, len(srv.ServerData))}
		for _, ep := range srv.ServerData {
			server.Items = append(server.Items, Episode{
				Name: ep.Name, Slug: ep.Slug, LinkEmbed: ep.LinkEmbed, LinkM3U8: ep.LinkM3U8,
			})
		}
		md.Episodes = append(md.Episodes, server)
	}
	return md
}

func resolveImage(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http") {
		return path
	}
	return fallbackImageCDN + strings.TrimPrefix(path, "/")
}
