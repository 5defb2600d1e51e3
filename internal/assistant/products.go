package assistant

import (
	"regexp"
	"strings"

	"storefront-gateway/internal/model"
)

var (
	listItem  = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+(.+)$`)
	boldName  = regexp.MustCompile(`^\*\*([^*]+)\*\*(.*)$`)
	separator = regexp.MustCompile(`\s*[:：]\s*|\s+[-–—]\s+`)
	priceTok  = regexp.MustCompile(`[$¥€£]\s?\d[\d,]*(?:\.\d{1,2})?`)
)

// ExtractProducts finds product recommendations in a markdown reply. An item
// is a list line whose name is bold, or a list line of the form
// "Name by Brand - description". Duplicate names are kept once.
func ExtractProducts(text string) []model.Product {
	var out []model.Product
	seen := make(map[string]bool)

	for _, line := range strings.Split(text, "\n") {
		m := listItem.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		p, ok := parseItem(strings.TrimSpace(m[1]))
		if !ok {
			continue
		}
		key := strings.ToLower(p.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

func parseItem(item string) (model.Product, bool) {
	var name, head, desc string

	if m := boldName.FindStringSubmatch(item); m != nil {
		name = strings.TrimSpace(m[1])
		head, desc = splitDescription(m[2])
	} else {
		head, desc = splitDescription(item)
		if desc == "" {
			return model.Product{}, false
		}
		i := strings.Index(strings.ToLower(head), " by ")
		if i < 0 {
			return model.Product{}, false
		}
		name = strings.TrimSpace(head[:i])
		head = head[i:]
	}
	if name == "" {
		return model.Product{}, false
	}

	brand, price := parseHead(head)
	if price == "" {
		price = priceTok.FindString(desc)
	}

	return model.Product{
		Name:        name,
		Brand:       brand,
		Price:       price,
		Description: strings.TrimSpace(desc),
	}, true
}

// splitDescription splits at the first separator.
func splitDescription(s string) (head, desc string) {
	loc := separator.FindStringIndex(s)
	if loc == nil {
		return s, ""
	}
	return s[:loc[0]], s[loc[1]:]
}

// parseHead reads " by Brand (price)" from the text between name and
// description. Both parts are optional.
func parseHead(head string) (brand, price string) {
	head = strings.TrimSpace(head)

	if open := strings.Index(head, "("); open >= 0 {
		if end := strings.Index(head[open:], ")"); end > 0 {
			if tok := priceTok.FindString(head[open : open+end]); tok != "" {
				price = tok
			}
			head = strings.TrimSpace(head[:open])
		}
	}

	lower := strings.ToLower(head)
	if strings.HasPrefix(lower, "by ") {
		brand = strings.TrimSpace(head[3:])
	}
	return brand, price
}
