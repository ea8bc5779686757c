package commits

import (
	"github.com/sirupsen/logrus"
)

// Store remembers classification results by commit hash. Commits are
// immutable, so a stored entry never goes stale.
type Store interface {
	Lookup(hash string) (c Commit, conventional bool, found bool)
	Save(hash string, c Commit, conventional bool) error
}

// Classifier parses raw commits, consulting an optional Store first.
type Classifier struct {
	store  Store
	logger logrus.FieldLogger
}

// NewClassifier creates a classifier. store may be nil.
func NewClassifier(store Store, logger logrus.FieldLogger) *Classifier {
	return &Classifier{store: store, logger: logger}
}

// Classify parses raws in order and drops non-conventional commits.
func (cl *Classifier) Classify(raws []Raw) []Commit {
	var out []Commit
	skipped := 0

	for _, r := range raws {
		c, ok := cl.classifyOne(r)
		if !ok {
			skipped++
			continue
		}
		out = append(out, c)
	}

	if skipped > 0 {
		cl.logger.WithFields(logrus.Fields{
			"skipped":   skipped,
			"parsed":    len(out),
			"total_raw": len(raws),
		}).Debug("Skipped non-conventional commits")
	}
	return out
}

func (cl *Classifier) classifyOne(r Raw) (Commit, bool) {
	if cl.store != nil && r.Hash != "" {
		if c, conventional, found := cl.store.Lookup(r.Hash); found {
			return c, conventional
		}
	}

	c, ok := Parse(r.Hash, r.Message)

	if cl.store != nil && r.Hash != "" {
		if err := cl.store.Save(r.Hash, c, ok); err != nil {
			cl.logger.WithError(err).WithField("hash", r.Hash).Warn("Failed to cache classified commit")
		}
	}
	return c, ok
}
