package scraper

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"jobflow/internal/domain/job"

	"github.com/PuerkitoBio/goquery"
)

const (
	cutshortURL     = "https://cutshort.io/jobs"
	topstartupsBase = "https://topstartups.io/jobs/?job_location=India" +
		"&startup__markets=Artificial+Intelligence&startup__markets=Analytics&startup__markets=Biotech" +
		"&startup__markets=Crypto&startup__markets=Cybersecurity&startup__markets=Data+Science" +
		"&startup__markets=E-Commerce&startup__markets=EdTech&startup__markets=Enterprise+Software" +
		"&startup__markets=FinTech&startup__markets=Hardware&startup__markets=SaaS" +
		"&startup__company_size=1-10+employees&startup__company_size=11-50+employees" +
		"&startup__company_size=51-100+employees&startup__company_size=101-200+employees" +
		"&startup__company_size=201-500+employees"
)

const notAvailable = "N/A"

// Source describes one job board.
type Source struct {
	Name string
	// URLs lists the listing pages to visit for the requested page count.
	URLs func(pages int) []string
	// Parse extracts the jobs of one listing page.
	Parse func(root *goquery.Selection) []job.Job
	// PageDelay spaces consecutive page fetches.
	PageDelay time.Duration
}

// Cutshort has a single featured-jobs page.
func Cutshort() Source {
	return CutshortAt(cutshortURL)
}

func CutshortAt(url string) Source {
	return Source{
		Name:  "cutshort",
		URLs:  func(int) []string { return []string{url} },
		Parse: ParseCutshort,
	}
}

func TopStartups() Source {
	return TopStartupsAt(topstartupsBase)
}

func TopStartupsAt(base string) Source {
	return Source{
		Name: "topstartups",
		URLs: func(pages int) []string {
			if pages <= 0 {
				pages = 2
			}
			sep := "&"
			if !strings.Contains(base, "?") {
				sep = "?"
			}
			out := make([]string, 0, pages)
			for p := 1; p <= pages; p++ {
				out = append(out, fmt.Sprintf("%s%spage=%d", base, sep, p))
			}
			return out
		},
		Parse:     ParseTopStartups,
		PageDelay: 2 * time.Second,
	}
}

func SourceByName(name string) (Source, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "cutshort":
		return Cutshort(), true
	case "topstartups":
		return TopStartups(), true
	}
	return Source{}, false
}

// ParseCutshort reads the featured job cards of cutshort.io.
func ParseCutshort(root *goquery.Selection) []job.Job {
	out := []job.Job{}
	root.Find("div.sc-fa532d7-1").First().Find("div.sc-7c1b58ff-0").Each(func(_ int, card *goquery.Selection) {
		title := text(card.Find("div.etmRhT").First())
		title = strings.TrimSpace(strings.ReplaceAll(title, "- lightning job by cutshort ⚡", ""))
		title = orNA(capitalizeWords(title))

		company := strings.TrimSpace(strings.TrimPrefix(text(card.Find("div.jHwvAU").First()), "at "))

		description := ""
		if d := card.Find("div.prose").First(); d.Length() > 0 {
			description, _ = goquery.OuterHtml(d)
		}

		// The first hsLjb block holds experience, the second pay. The
		// value is the second div of each.
		var pay, experience string
		meta := card.Find("div.hsLjb")
		if meta.Length() > 1 {
			pay = text(meta.Eq(1).Find("div").Eq(1))
		}
		if meta.Length() > 0 {
			experience = text(meta.Eq(0).Find("div").Eq(1))
		}

		out = append(out, job.Job{
			Title:       title,
			Company:     orNA(company),
			Location:    orNA(text(card.Find("div.iuWDyb").First())),
			Description: description,
			ApplyLink:   strings.TrimSpace(card.Find("a.gFhnqg").First().AttrOr("href", "")),
			Tags:        texts(card.Find("span.cKTdnH")),
			Pay:         pay,
			Experience:  experience,
		})
	})
	return out
}

// ParseTopStartups reads the job cards of topstartups.io. The first and last
// cards of a page are promotional and dropped.
func ParseTopStartups(root *goquery.Selection) []job.Job {
	cards := []job.Job{}
	root.Find("div.card.card-body").Each(func(_ int, card *goquery.Selection) {
		j := job.Job{
			Title:      dropWord(text(card.Find("h5#job-title").First()), "New"),
			Company:    notAvailable,
			Location:   notAvailable,
			Pay:        "Not listed",
			Experience: notAvailable,
			Tags:       texts(card.Find("span.badge")),
		}
		if j.Title == "" {
			j.Title = notAvailable
		}

		// Links alternate between the company name and the apply link.
		card.Find("a#startup-website-link").Each(func(i int, a *goquery.Selection) {
			if i%2 == 0 {
				if h := a.Find("h7").First(); h.Length() > 0 {
					j.Company = orNA(text(h))
				}
				return
			}
			j.ApplyLink = strings.TrimSpace(a.AttrOr("href", ""))
		})

		if loc := card.Find("i.fas.fa-map-marker-alt").First(); loc.Length() > 0 {
			j.Location = orNA(text(loc.Parent()))
		}
		if p := card.Find("b#card-header").First().Closest("p"); p.Length() > 0 {
			j.Description = ownText(p)
		}
		if s := card.Find("span.salary").First(); s.Length() > 0 {
			j.Pay = text(s)
		}
		if exp := card.Find("i.fas.fa-briefcase").First(); exp.Length() > 0 {
			j.Experience = strings.TrimSpace(strings.ReplaceAll(text(exp.Parent()), "Experience: ", ""))
		}
		cards = append(cards, j)
	})

	if len(cards) <= 2 {
		return []job.Job{}
	}
	return cards[1 : len(cards)-1]
}

func text(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}

func texts(s *goquery.Selection) []string {
	out := make([]string, 0, s.Length())
	s.Each(func(_ int, e *goquery.Selection) {
		if t := text(e); t != "" {
			out = append(out, t)
		}
	})
	return out
}

// ownText joins the text nodes directly under s, skipping child elements.
func ownText(s *goquery.Selection) string {
	parts := []string{}
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) != "#text" {
			return
		}
		if t := strings.TrimSpace(c.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, " ")
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return notAvailable
	}
	return s
}

func dropWord(s, word string) string {
	fields := strings.Fields(s)
	out := fields[:0]
	for _, f := range fields {
		if f != word {
			out = append(out, f)
		}
	}
	return strings.Join(out, " ")
}

// capitalizeWords upper-cases the first letter of each word and lower-cases
// the rest.
func capitalizeWords(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		r := []rune(strings.ToLower(f))
		r[0] = unicode.ToUpper(r[0])
		fields[i] = string(r)
	}
	return strings.Join(fields, " ")
}
