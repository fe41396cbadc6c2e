package scraper

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/onionboard/internal/model"
)

const (
	// forumThreshold is the score at which a page counts as a forum.
	forumThreshold = 5

	// maxContentLen bounds post and fallback content, in runes.
	maxContentLen = 2000

	// minPostLen drops matches too short to be a real post.
	minPostLen = 3

	anonymousAuthor = "Anonymous"
	unknownAuthor   = "Unknown"
	fallbackAuthor  = "System (Fallback)"
)

// forumEngines are generator names of common forum software.
var forumEngines = []string{
	"vbulletin", "xenforo", "mybb", "phpbb", "fluxbb", "smf", "discuz", "nodebb",
}

// forumURLWords appear in URLs of thread and board pages.
var forumURLWords = []string{
	"thread", "topic", "showthread", "viewtopic", "board", "forums",
}

// forumTextWords each add one point when found in the page text.
var forumTextWords = []string{
	"thread", "post", "topic", "forum", "vbulletin", "xenforo",
	"phpbb", "mybb", "discussion", "board", "category", "subject",
	"reply", "quote", "last post", "started by", "registered", "member",
}

// postSelectors are tried in order; the first one yielding posts wins.
var postSelectors = []string{
	".post", ".message", ".entry", "article", ".comment", ".post-container", "div[id^='post']",
	".postbit", ".post-content", ".message-content", ".post_body", ".entry-content",
	".ItemBody", ".CommentBody", ".lia-message-body-content", ".js-post__content-text",
	".cooked", ".topic-body", ".post-message", ".post_wrapper", ".post_block",
	"table.post", "div.post", "td.post_content",
}

const (
	contentSelector = ".content, .message, .body, .text, .entry-content, .post_body, .post_content, " +
		".posttext, .post-text, .messageText, .uu_post"

	// noiseSelector removes chrome around the post body.
	noiseSelector = "script, style, button, isindex, .footer, .signature, " +
		".message-cell--user, .message-userInfo, .post-sidebar, .postprofile, .user-details, .post-left, " +
		".user_info, .author_info, .message-userExtras, .message-avatar-wrapper, .message-userTitle, " +
		".message-userBanner, .bbCodeBlock-expandLink, .attribution, .reaction-bar, .reactions, " +
		".message-attribution, .message-footer, .message-lastEdit, .privateControls, .publicControls, " +
		".post_head, .post-head, .node-controls, .post-date, .date, .permalink, .post-number, dl.pairs"

	// containerNoiseSelector is used when the whole post container is the content.
	containerNoiseSelector = "script, style, button, .footer, .signature, .user_info, .author_info, " +
		".post_head, .post-head, .message-cell--user, .message-userInfo, .postprofile, " +
		".message-attribution, .message-footer, .message-lastEdit, .reaction-bar"

	authorSelector         = ".author, .user, .username, .name, a[href*='user'], .poster, .user-details, .popupctrl, .mem_profile"
	authorFallbackSelector = ".user_info, .author_info, .post_author"
	dateSelector           = ".date, .time, time, .timestamp, .published, .post-date, .date-header, .post_date"
	dateFallbackSelector   = ".post_head, .post-head, .thead"
	lastEditSelector       = ".message-lastEdit, .post-edit, .edited-by"

	threadRowSelector   = ".thread, .topic, .row"
	threadTitleSelector = ".title, .subject, h3, a"
)

// expandMarkers are quote expander labels left in post text.
var expandMarkers = []string{"Click to expand...", "Click to expand"}

// Analyze scores doc for forum signals and extracts its threads and posts.
// pageURL is the address the document was fetched from; now stamps items
// the page gives no date for.
func Analyze(doc *goquery.Document, pageURL string, keywords []model.Keyword, now time.Time) *model.ScanResult {
	result := &model.ScanResult{
		URL:     pageURL,
		Title:   pageTitle(doc),
		Threads: []model.ThreadData{},
	}

	result.IsForum = ForumScore(doc, pageURL) >= forumThreshold

	if posts := extractPosts(doc, now); len(posts) > 0 {
		// A page of posts is a single thread opened by its first post.
		result.IsForum = true
		result.PostCount = len(posts)
		first := posts[0]
		result.Threads = []model.ThreadData{{
			Title:    result.Title,
			Link:     pageURL,
			Author:   first.Author,
			Date:     first.Date,
			Content:  first.Content,
			Category: DetectCategory(first.Content+" "+result.Title, keywords),
			Posts:    posts,
		}}
		result.ThreadCount = 1
		return result
	}

	if !result.IsForum {
		return result
	}

	result.Threads = extractThreadRows(doc, pageURL, keywords, now)
	if len(result.Threads) == 0 {
		result.Threads = []model.ThreadData{fallbackThread(doc, result.Title, pageURL, keywords, now)}
	}
	result.ThreadCount = len(result.Threads)
	return result
}

// ForumScore sums the forum signals found in doc.
func ForumScore(doc *goquery.Document, pageURL string) int {
	score := 0

	doc.Find("meta[name='generator']").Each(func(_ int, s *goquery.Selection) {
		content, ok := s.Attr("content")
		if !ok {
			return
		}
		if containsAny(strings.ToLower(content), forumEngines) {
			score += 10
		}
	})

	if containsAny(strings.ToLower(pageURL), forumURLWords) {
		score += 5
	}

	text := strings.ToLower(doc.Text())
	for _, word := range forumTextWords {
		if strings.Contains(text, word) {
			score++
		}
	}

	if doc.Find(".thread, .topic, .row, .threadbit, .windowbg").Length() > 0 {
		score += 3
	}
	if doc.Find(".post, .message, .entry, .postbit, .post_block").Length() > 0 {
		score += 3
	}
	if doc.Find(".pagination, .pagenav, .pages").Length() > 0 {
		score += 2
	}
	if doc.Find(".breadcrumb, .navbit").Length() > 0 {
		score += 2
	}
	return score
}

// pageTitle prefers forum title classes, then the last non-empty h1, then
// <title>.
func pageTitle(doc *goquery.Document) string {
	title := strings.TrimSpace(doc.Find("title").First().Text())

	doc.Find("h1").Each(func(_ int, s *goquery.Selection) {
		if h1 := strings.TrimSpace(s.Text()); h1 != "" {
			title = h1
		}
	})
	doc.Find(".p-title-value, .ipbType_sectionTitle").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			title = t
		}
	})
	return cleanText(title)
}

func extractPosts(doc *goquery.Document, now time.Time) []model.PostData {
	var posts []model.PostData
	for _, selector := range postSelectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			if p, ok := extractPost(s, now); ok {
				posts = append(posts, p)
			}
		})
		if len(posts) > 0 {
			break
		}
	}
	return posts
}

func extractPost(s *goquery.Selection, now time.Time) (model.PostData, bool) {
	lastEdited := cleanText(s.Find(lastEditSelector).Text())

	// Work on a copy so removing noise does not affect later selectors.
	body := s.Clone()
	content := body.Find(contentSelector)
	content.Find(noiseSelector).Remove()
	text := stripExpandMarkers(strings.TrimSpace(content.Text()))

	if text == "" {
		container := s.Clone()
		container.Find(containerNoiseSelector).Remove()
		text = truncate(stripExpandMarkers(strings.TrimSpace(container.Text())), maxContentLen, "...")
	}
	text = cleanText(text)
	if len([]rune(text)) < minPostLen {
		return model.PostData{}, false
	}

	author := strings.TrimSpace(s.Find(authorSelector).First().Text())
	if author == "" {
		author = strings.TrimSpace(s.Find(authorFallbackSelector).First().Text())
	}
	if author == "" {
		author = anonymousAuthor
	}

	date := strings.TrimSpace(s.Find(dateSelector).First().Text())
	if date == "" {
		date = strings.TrimSpace(s.Find(dateFallbackSelector).Text())
	}
	if date == "" {
		date = now.Format("2006-01-02 15:04")
	}

	return model.PostData{
		Author:     cleanText(author),
		Content:    text,
		Date:       cleanText(date),
		LastEdited: lastEdited,
	}, true
}

func extractThreadRows(doc *goquery.Document, pageURL string, keywords []model.Keyword, now time.Time) []model.ThreadData {
	threads := []model.ThreadData{}
	doc.Find(threadRowSelector).Each(func(_ int, s *goquery.Selection) {
		titleSel := s.Find(threadTitleSelector).First()
		title := cleanText(titleSel.Text())
		if title == "" {
			return
		}
		link := pageURL
		if href, ok := titleSel.Attr("href"); ok && href != "" {
			link = resolveLink(pageURL, href)
		}
		threads = append(threads, model.ThreadData{
			Title:    title,
			Link:     link,
			Author:   unknownAuthor,
			Date:     now.Format("2006-01-02"),
			Category: DetectCategory(title, keywords),
			Posts:    []model.PostData{},
		})
	})
	return threads
}

// fallbackThread stores the raw page text so the operator can still read a
// forum whose markup was not understood.
func fallbackThread(doc *goquery.Document, title, pageURL string, keywords []model.Keyword, now time.Time) model.ThreadData {
	raw := truncate(strings.TrimSpace(doc.Find("body").Text()), maxContentLen, "... (truncated)")
	return model.ThreadData{
		Title:    title,
		Link:     pageURL,
		Author:   fallbackAuthor,
		Date:     now.Format("2006-01-02 15:04"),
		Content:  "Automatic parsing failed. Raw content:\n\n" + raw,
		Category: DetectCategory(title, keywords),
		Posts:    []model.PostData{},
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// cleanText collapses runs of whitespace into single spaces.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func stripExpandMarkers(s string) string {
	for _, m := range expandMarkers {
		s = strings.ReplaceAll(s, m, "")
	}
	return strings.TrimSpace(s)
}

// truncate cuts s to maxLen runes and appends suffix when it was cut.
func truncate(s string, maxLen int, suffix string) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + suffix
}
