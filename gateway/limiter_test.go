package gateway

import (
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("subjectLimiter", func() {
	It("allows everything when disabled", func() {
		l := newSubjectLimiter(0, 0)
		Expect(l).To(BeNil())
		for range 100 {
			Expect(l.Allow("anyone")).To(BeTrue())
		}
	})

	It("keeps a separate bucket per subject", func() {
		l := newSubjectLimiter(1, 2)
		now := time.Unix(1_700_000_000, 0)
		l.now = func() time.Time { return now }

		Expect(l.Allow("a")).To(BeTrue())
		Expect(l.Allow("a")).To(BeTrue())
		Expect(l.Allow("a")).To(BeFalse())
		Expect(l.Allow("b")).To(BeTrue())

		now = now.Add(time.Second)
		Expect(l.Allow("a")).To(BeTrue())
	})

	It("sweeps idle subjects once the table is large", func() {
		l := newSubjectLimiter(1, 1)
		now := time.Unix(1_700_000_000, 0)
		l.now = func() time.Time { return now }

		for i := range limiterSweepAbove {
			l.Allow(fmt.Sprintf("user-%d", i))
		}
		Expect(l.limiters).To(HaveLen(limiterSweepAbove))

		now = now.Add(limiterIdleTTL + time.Minute)
		l.Allow("fresh")
		Expect(l.limiters).To(HaveLen(1))
		Expect(l.limiters).To(HaveKey("fresh"))
	})
})
