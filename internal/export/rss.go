package export

import (
	"crypto/md5"
	"encoding/xml"
	"fmt"

	"github.com/kevinreber/siphon/internal/analysis"
)

// RSS 2.0 feed of content ideas. Readers poll the export file; GUIDs are
// derived from idea title and day so re-exporting the same window does
// not resurface old items as unread.

type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	LastBuildDate string    `xml:"lastBuildDate"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string  `xml:"title"`
	Description string  `xml:"description"`
	Category    string  `xml:"category"`
	GUID        rssGUID `xml:"guid"`
	PubDate     string  `xml:"pubDate"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

func renderRSS(result *analysis.AnalysisResult) ([]byte, error) {
	const rfc1123z = "Mon, 02 Jan 2006 15:04:05 -0700"

	feed := rssFeed{
		Version: "2.0",
		Channel: rssChannel{
			Title:         "siphon — content ideas",
			Link:          "http://127.0.0.1:9847",
			Description:   "Content ideas mined from captured developer activity",
			LastBuildDate: result.EndTime.Format(rfc1123z),
		},
	}

	day := result.EndTime.Format("2006-01-02")
	for _, idea := range result.Ideas {
		guid := md5.Sum([]byte(idea.Title + "|" + day))
		feed.Channel.Items = append(feed.Channel.Items, rssItem{
			Title:       idea.Title,
			Description: fmt.Sprintf("%s\n\nAngle: %s", idea.Hook, idea.Angle),
			Category:    string(idea.SuggestedFormat),
			GUID:        rssGUID{IsPermaLink: false, Value: fmt.Sprintf("%x", guid)},
			PubDate:     result.EndTime.Format(rfc1123z),
		})
	}

	body, err := xml.MarshalIndent(feed, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rss feed: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}
