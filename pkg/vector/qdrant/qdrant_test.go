package qdrant_test

import (
	"context"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/vector"
	"github.com/papercomputeco/recall/pkg/vector/drivertest"
	"github.com/papercomputeco/recall/pkg/vector/qdrant"
)

// addrEnv points the integration specs at a Qdrant gRPC endpoint.
const addrEnv = "RECALL_TEST_QDRANT_ADDR"

var _ = Describe("Driver", func() {
	Describe("NewDriver", func() {
		It("requires an address", func() {
			_, err := qdrant.NewDriver(context.Background(), qdrant.Config{Dimensions: 4}, logger.Nop())
			Expect(err).To(MatchError(ContainSubstring("address is required")))
		})

		It("requires dimensions", func() {
			_, err := qdrant.NewDriver(context.Background(), qdrant.Config{Addr: "localhost:6334"}, logger.Nop())
			Expect(err).To(MatchError(ContainSubstring("dimensions cannot be 0")))
		})

		It("rejects a non-numeric port", func() {
			_, err := qdrant.NewDriver(context.Background(), qdrant.Config{Addr: "localhost:grpc", Dimensions: 4}, logger.Nop())
			Expect(err).To(MatchError(ContainSubstring("invalid qdrant port")))
		})
	})

	Describe("CompileFilter", func() {
		It("compiles the empty filter to nil", func() {
			f, err := qdrant.CompileFilter(vector.Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(f).To(BeNil())
		})

		It("puts conjunctions in must", func() {
			f, err := qdrant.CompileFilter(vector.And(
				vector.Eq(vector.FieldUserID, "alice"),
				vector.Eq(vector.FieldIsWeekend, true),
				vector.Eq(vector.FieldYear, 2024),
			))
			Expect(err).NotTo(HaveOccurred())
			Expect(f.GetMust()).To(HaveLen(3))
			Expect(f.GetMust()[0].GetField().GetKey()).To(Equal("user_id"))
			Expect(f.GetMust()[0].GetField().GetMatch().GetKeyword()).To(Equal("alice"))
			Expect(f.GetMust()[1].GetField().GetMatch().GetBoolean()).To(BeTrue())
			Expect(f.GetMust()[2].GetField().GetKey()).To(Equal("temporal.year"))
			Expect(f.GetMust()[2].GetField().GetMatch().GetInteger()).To(Equal(int64(2024)))
		})

		It("puts disjunctions in should", func() {
			f, err := qdrant.CompileFilter(vector.Or(
				vector.Eq(vector.FieldDayOfWeek, "saturday"),
				vector.Eq(vector.FieldDayOfWeek, "sunday"),
			))
			Expect(err).NotTo(HaveOccurred())
			Expect(f.GetShould()).To(HaveLen(2))
		})

		It("nests all-of tag matches", func() {
			f, err := qdrant.CompileFilter(vector.AllOf(vector.FieldTags, "a", "b"))
			Expect(err).NotTo(HaveOccurred())
			Expect(f.GetMust()).To(HaveLen(1))
			Expect(f.GetMust()[0].GetFilter().GetMust()).To(HaveLen(2))
		})

		It("compiles any-of to a keywords match", func() {
			f, err := qdrant.CompileFilter(vector.AnyOf(vector.FieldTags, "a", "b"))
			Expect(err).NotTo(HaveOccurred())
			Expect(f.GetMust()[0].GetField().GetMatch().GetKeywords().GetStrings()).To(Equal([]string{"a", "b"}))
		})

		It("compiles half-open ranges", func() {
			f, err := qdrant.CompileFilter(vector.Range(vector.FieldCreatedAt, 10, 20))
			Expect(err).NotTo(HaveOccurred())
			r := f.GetMust()[0].GetField().GetRange()
			Expect(r.GetGte()).To(Equal(10.0))
			Expect(r.GetLt()).To(Equal(20.0))
		})

		It("rejects invalid filters", func() {
			_, err := qdrant.CompileFilter(vector.Filter{Op: vector.OpAnd})
			Expect(err).To(MatchError(vector.ErrUnsupportedFilter))
		})
	})

	Context("against a live server", func() {
		BeforeEach(func() {
			if os.Getenv(addrEnv) == "" {
				Skip(addrEnv + " not set")
			}
		})

		drivertest.DescribeDriver(func() vector.Driver {
			ctx := context.Background()
			d, err := qdrant.NewDriver(ctx, qdrant.Config{
				Addr:       os.Getenv(addrEnv),
				Collection: "recall_memories_test",
				Dimensions: drivertest.Dimensions,
			}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Truncate(ctx)).To(Succeed())
			return d
		})
	})
})
