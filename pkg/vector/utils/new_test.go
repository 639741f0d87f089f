package vectorutils_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/vector/inmemory"
	"github.com/papercomputeco/recall/pkg/vector/sqlitevec"
	vectorutils "github.com/papercomputeco/recall/pkg/vector/utils"
)

var _ = Describe("NewVectorDriver", func() {
	ctx := context.Background()

	It("builds the in-memory driver", func() {
		d, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
			ProviderType: vectorutils.ProviderInMemory,
			Logger:       logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(BeAssignableToTypeOf(&inmemory.Driver{}))
	})

	It("builds the sqlite driver", func() {
		d, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
			ProviderType: vectorutils.ProviderSQLite,
			TargetURL:    ":memory:",
			Dimensions:   4,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(BeAssignableToTypeOf(&sqlitevec.SQLiteVecDriver{}))
		Expect(d.Close()).To(Succeed())
	})

	It("passes validation errors through", func() {
		_, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
			ProviderType: vectorutils.ProviderPGVector,
			Dimensions:   4,
		})
		Expect(err).To(MatchError(ContainSubstring("DSN is required")))
	})

	It("rejects unknown providers", func() {
		_, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{ProviderType: "faiss"})
		Expect(err).To(MatchError(ContainSubstring("unsupported vector store provider: faiss")))
	})
})
