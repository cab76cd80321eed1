package twitter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	twitterscraper "github.com/n0madic/twitter-scraper"
)

// Tweet is the simplified record every search hit is reduced to.
type Tweet struct {
	Text     string
	Likes    int
	Retweets int
	Replies  int
	Username string
	Name     string
	Date     time.Time
	URL      string
}

// streamItem is one element of a lazy tweet sequence: a tweet or the error
// that ended the stream.
type streamItem struct {
	tweet Tweet
	err   error
}

// client is the minimal surface the provider needs from the underlying
// scraper library. Kept narrow so tests can substitute a fake.
type client interface {
	IsLoggedIn() bool
	Login(credentials ...string) error
	Cookies() []*http.Cookie
	SetCookies(cookies []*http.Cookie)
	SearchTweets(ctx context.Context, query string, max int, mode string) <-chan streamItem
	Trends() ([]string, error)
	UserTweets(ctx context.Context, username string, max int) <-chan streamItem
}

// scraperClient adapts the twitter-scraper library to the client interface.
type scraperClient struct {
	scraper *twitterscraper.Scraper
}

func newScraperClient() (c client, err error) {
	// The scraper pulls in a heavyweight dependency tree; a panic during
	// construction must degrade the provider, not crash the process.
	defer func() {
		if r := recover(); r != nil {
			c = nil
			err = fmt.Errorf("scraper construction panicked: %v", r)
		}
	}()
	return &scraperClient{scraper: twitterscraper.New()}, nil
}

func (s *scraperClient) IsLoggedIn() bool {
	return s.scraper.IsLoggedIn()
}

func (s *scraperClient) Login(credentials ...string) error {
	return s.scraper.Login(credentials...)
}

func (s *scraperClient) Cookies() []*http.Cookie {
	return s.scraper.GetCookies()
}

func (s *scraperClient) SetCookies(cookies []*http.Cookie) {
	s.scraper.SetCookies(cookies)
}

func (s *scraperClient) SearchTweets(ctx context.Context, query string, max int, mode string) <-chan streamItem {
	if mode == "latest" {
		s.scraper.SetSearchMode(twitterscraper.SearchLatest)
	} else {
		s.scraper.SetSearchMode(twitterscraper.SearchTop)
	}
	return adaptStream(s.scraper.SearchTweets(ctx, query, max))
}

func (s *scraperClient) Trends() ([]string, error) {
	return s.scraper.GetTrends()
}

func (s *scraperClient) UserTweets(ctx context.Context, username string, max int) <-chan streamItem {
	return adaptStream(s.scraper.GetTweets(ctx, username, max))
}

// adaptStream converts the library's tweet channel into the simplified lazy
// sequence the provider paginates over.
func adaptStream(in <-chan *twitterscraper.TweetResult) <-chan streamItem {
	out := make(chan streamItem)
	go func() {
		defer close(out)
		for tr := range in {
			if tr.Error != nil {
				out <- streamItem{err: tr.Error}
				return
			}
			out <- streamItem{tweet: Tweet{
				Text:     tr.Text,
				Likes:    tr.Likes,
				Retweets: tr.Retweets,
				Replies:  tr.Replies,
				Username: tr.Username,
				Name:     tr.Name,
				Date:     tr.TimeParsed,
				URL:      tr.PermanentURL,
			}}
		}
	}()
	return out
}

// collect paginates a lazy tweet sequence: skip offset items, then gather up
// to count items. Written once against the stream so no caller branches on
// the shape of the underlying result set.
func collect(stream <-chan streamItem, offset, count int) ([]Tweet, error) {
	tweets := make([]Tweet, 0, count)
	skipped := 0
	for item := range stream {
		if item.err != nil {
			return tweets, item.err
		}
		if skipped < offset {
			skipped++
			continue
		}
		tweets = append(tweets, item.tweet)
		if len(tweets) >= count {
			break
		}
	}
	return tweets, nil
}
