package merge

import "github.com/lherron/wbmerge/internal/workbook"

// TopicConflict is a topic present in both workbooks whose fields differ.
// Resolve it by editing Result().
type TopicConflict struct {
	Triple[*workbook.Topic]
	differences []Field
}

// NewTopicConflict compares source and target with cmp and records which
// fields differ.
func NewTopicConflict(cmp Comparator, source, target, result *workbook.Topic) *TopicConflict {
	return &TopicConflict{
		Triple:      NewTriple(source, target, result),
		differences: cmp.topicDifferences(source, target),
	}
}

// Differences returns the differing fields in Fields order.
func (c *TopicConflict) Differences() []Field {
	return append([]Field(nil), c.differences...)
}

// Differs reports whether the topics differ on f.
func (c *TopicConflict) Differs(f Field) bool {
	for _, d := range c.differences {
		if d == f {
			return true
		}
	}
	return false
}

// Identical reports whether the topics agree on every field, which happens
// when a topic was touched without being changed.
func (c *TopicConflict) Identical() bool {
	return len(c.differences) == 0
}
