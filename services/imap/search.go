package imap

import (
	"github.com/emersion/go-imap"

	"github.com/inboxkit/mailsync/internal/models"
)

// buildSearchCriteria combines a UID range above the cursor with a
// subject-contains predicate, AND-ed. With neither it matches the whole
// folder.
//
// Lightweight loopback/dev servers tend to reject UID range searches, so
// for loopback hosts the range predicate is left out; the caller enforces
// the lower bound in memory via filterUIDsAfter on the returned UID set.
func buildSearchCriteria(filter models.EmailFilterParameters, loopback bool) *imap.SearchCriteria {
	criteria := imap.NewSearchCriteria()

	if filter.AfterUID > 0 && !loopback {
		uidRange := new(imap.SeqSet)
		// 0 as range end stands for "*"
		uidRange.AddRange(filter.AfterUID+1, 0)
		criteria.Uid = uidRange
	}

	if filter.Subject != "" {
		criteria.Header.Add("Subject", filter.Subject)
	}

	return criteria
}

// filterUIDsAfter drops every UID at or below the exclusive lower bound.
func filterUIDsAfter(uids []uint32, after uint32) []uint32 {
	if after == 0 {
		return uids
	}

	filtered := make([]uint32, 0, len(uids))
	for _, uid := range uids {
		if uid > after {
			filtered = append(filtered, uid)
		}
	}
	return filtered
}
