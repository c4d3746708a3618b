package youtube

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"
)

// API is the subset of the Data API the client calls.
type API interface {
	// SearchIDs runs search.list and returns the video IDs of one page.
	SearchIDs(ctx context.Context, query, pageToken string, max int64) (ids []string, next string, err error)
	// Videos runs videos.list for the given IDs.
	Videos(ctx context.Context, ids []string) ([]*yt.Video, error)
	// MostPopular runs videos.list with chart=mostPopular. An empty
	// category means no filter.
	MostPopular(ctx context.Context, region, category, pageToken string, max int64) ([]*yt.Video, string, error)
}

// APIFactory returns an API bound to apiKey.
type APIFactory func(ctx context.Context, apiKey string) (API, error)

type serviceAPI struct {
	svc *yt.Service
}

// NewServiceFactory returns a factory backed by the official client. One
// service is kept per distinct key.
func NewServiceFactory(extra ...option.ClientOption) APIFactory {
	var mu sync.Mutex
	byKey := map[string]API{}
	return func(ctx context.Context, apiKey string) (API, error) {
		mu.Lock()
		defer mu.Unlock()
		if a, ok := byKey[apiKey]; ok {
			return a, nil
		}
		opts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, extra...)
		// The service must outlive the request that created it.
		svc, err := yt.NewService(context.WithoutCancel(ctx), opts...)
		if err != nil {
			return nil, fmt.Errorf("youtube service: %w", err)
		}
		a := &serviceAPI{svc: svc}
		byKey[apiKey] = a
		return a, nil
	}
}

func (s *serviceAPI) SearchIDs(ctx context.Context, query, pageToken string, max int64) ([]string, string, error) {
	call := s.svc.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		Order("relevance").
		MaxResults(max)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, "", err
	}
	ids := make([]string, 0, len(resp.Items))
	for _, it := range resp.Items {
		if it.Id != nil && it.Id.VideoId != "" {
			ids = append(ids, it.Id.VideoId)
		}
	}
	return ids, resp.NextPageToken, nil
}

func (s *serviceAPI) Videos(ctx context.Context, ids []string) ([]*yt.Video, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	resp, err := s.svc.Videos.List([]string{"snippet", "contentDetails", "statistics"}).
		Id(ids...).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (s *serviceAPI) MostPopular(ctx context.Context, region, category, pageToken string, max int64) ([]*yt.Video, string, error) {
	call := s.svc.Videos.List([]string{"snippet", "contentDetails"}).
		Chart("mostPopular").
		RegionCode(region).
		MaxResults(max)
	if category != "" {
		call = call.VideoCategoryId(category)
	}
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, "", err
	}
	return resp.Items, resp.NextPageToken, nil
}

// IsQuotaExceeded reports a 403 whose message or reason mentions quota.
func IsQuotaExceeded(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Code != 403 {
		return false
	}
	if strings.Contains(strings.ToLower(gerr.Message), "quota") {
		return true
	}
	for _, it := range gerr.Errors {
		if strings.Contains(strings.ToLower(it.Reason), "quota") ||
			strings.Contains(strings.ToLower(it.Message), "quota") {
			return true
		}
	}
	return false
}

// IsNotFound reports an HTTP 404 from the API.
func IsNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == 404
}
