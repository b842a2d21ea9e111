package sms

// RecipientSet is the ephemeral, computed expansion of a message's audience.
// It is never persisted; TotalSegments is what the quota check prices.
type RecipientSet struct {
	Phones             []string
	ContactMap         map[string]*int64
	TotalRecipients    int
	SegmentsPerMessage int
	TotalSegments      int64
}

// GroupContact is a contact pre-resolved from a contact group: a phone the
// dashboard already stores, carrying a durable contact id.
type GroupContact struct {
	ContactID int64
	Phone     string
}

type RecipientPreparer struct {
	normalizer *PhoneNormalizer
}

func NewRecipientPreparer(normalizer *PhoneNormalizer) *RecipientPreparer {
	return &RecipientPreparer{normalizer: normalizer}
}

// Prepare merges manual numbers with group contacts, dedupes preserving first
// occurrence, and prices the message. Manual numbers are normalized fail-fast;
// group contacts not in canonical form are silently filtered (they were
// validated at contact creation, so a mismatch means stale data, not user
// input to reject). Both sets empty after filtering yields zero recipients,
// not an error: the caller decides whether that is fatal.
func (p *RecipientPreparer) Prepare(manual []string, group []GroupContact, body string) (RecipientSet, error) {
	normalized, err := p.normalizer.NormalizeAll(manual)
	if err != nil {
		return RecipientSet{}, err
	}

	seen := make(map[string]struct{})
	contactMap := make(map[string]*int64)
	var phones []string

	for _, phone := range normalized {
		if _, dup := seen[phone]; dup {
			continue
		}
		seen[phone] = struct{}{}
		phones = append(phones, phone)
		contactMap[phone] = nil
	}

	for _, contact := range group {
		if !IsCanonical(contact.Phone) {
			continue
		}
		if _, dup := seen[contact.Phone]; dup {
			// Manual entry won the slot; keep the contact id so the
			// delivery outcome still links to the durable record.
			if contactMap[contact.Phone] == nil {
				id := contact.ContactID
				contactMap[contact.Phone] = &id
			}
			continue
		}
		seen[contact.Phone] = struct{}{}
		phones = append(phones, contact.Phone)
		id := contact.ContactID
		contactMap[contact.Phone] = &id
	}

	segments := CountSegments(body)

	return RecipientSet{
		Phones:             phones,
		ContactMap:         contactMap,
		TotalRecipients:    len(phones),
		SegmentsPerMessage: segments,
		TotalSegments:      int64(len(phones)) * int64(segments),
	}, nil
}
