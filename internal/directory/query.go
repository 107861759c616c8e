package directory

import (
	"sort"
	"strings"

	"github.com/kapu/parish-directory-go/internal/domain"
	"github.com/kapu/parish-directory-go/internal/util"
)

// Entry is a member together with its position in the document it came from, so a
// filtered or sorted view can still address the stored record.
type Entry struct {
	Index  int           `json:"index"`
	Member domain.Member `json:"member"`
}

// AnnouncementEntry is the announcement counterpart of Entry.
type AnnouncementEntry struct {
	Index        int                 `json:"index"`
	Announcement domain.Announcement `json:"announcement"`
}

// Search keeps members whose name or phone contains term, ignoring case. Only the empty
// term returns members unchanged; whitespace is matched like any other text.
func Search(members []domain.Member, term string) []domain.Member {
	term = normalizeTerm(term)
	if term == "" {
		return members
	}

	filtered := make([]domain.Member, 0, len(members))
	for _, m := range members {
		if matches(m, term) {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

// Sorted returns a copy ordered by name, case-insensitively. Equal names keep input order.
func Sorted(members []domain.Member) []domain.Member {
	out := make([]domain.Member, len(members))
	copy(out, members)
	sort.SliceStable(out, func(i, j int) bool {
		return nameKey(out[i]) < nameKey(out[j])
	})
	return out
}

// Index pairs every member with its document position.
func Index(members []domain.Member) []Entry {
	entries := make([]Entry, len(members))
	for i, m := range members {
		entries[i] = Entry{Index: i, Member: m}
	}
	return entries
}

// SearchEntries is Search over indexed members.
func SearchEntries(entries []Entry, term string) []Entry {
	term = normalizeTerm(term)
	if term == "" {
		return entries
	}

	filtered := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if matches(e.Member, term) {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// SortEntries is Sorted over indexed members.
func SortEntries(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		return nameKey(out[i].Member) < nameKey(out[j].Member)
	})
	return out
}

// Browse is what listing pages show: the members matching term, alphabetically.
func Browse(members []domain.Member, term string) []Entry {
	return SortEntries(SearchEntries(Index(members), term))
}

// Latest lists announcements newest first.
func Latest(messages []domain.Announcement) []AnnouncementEntry {
	out := make([]AnnouncementEntry, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		out = append(out, AnnouncementEntry{Index: i, Announcement: messages[i]})
	}
	return out
}

func normalizeTerm(term string) string {
	return strings.ToLower(term)
}

func matches(m domain.Member, term string) bool {
	return util.ContainsFold(m.Name, term) || util.ContainsFold(m.Phone, term)
}

func nameKey(m domain.Member) string {
	return strings.ToLower(m.Name)
}
