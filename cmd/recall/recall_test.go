package recallcmder_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/api"
	recallcmder "github.com/papercomputeco/recall/cmd/recall"
	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/memory/engine"
	testutils "github.com/papercomputeco/recall/pkg/utils/test"
)

var _ = Describe("NewRecallCmd", func() {
	It("registers every subcommand", func() {
		cmd := recallcmder.NewRecallCmd()
		names := make([]string, 0, len(cmd.Commands()))
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("serve", "add", "search", "get", "delete", "config", "init", "version"))
	})

	It("prints the version", func() {
		var out bytes.Buffer
		cmd := recallcmder.NewRecallCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"version"})
		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Version: dev"))
	})
})

var _ = Describe("client commands", func() {
	var (
		srv       *httptest.Server
		configDir string
	)

	BeforeEach(func() {
		embedder := testutils.NewMockEmbedder()
		embedder.Embeddings["I like tea"] = []float32{1, 0, 0}
		embedder.Embeddings["tea"] = []float32{1, 0, 0}
		embedder.Embeddings["Went hiking"] = []float32{0, 1, 0}

		eng, err := engine.New(engine.Config{
			Store:    testutils.NewMockVectorDriver(),
			Embedder: embedder,
			Dedup:    engine.DedupConfig{Enabled: true},
			Logger:   logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		srv = httptest.NewServer(api.NewServer(api.Config{}, eng, logger.Nop()).Handler())
		configDir = GinkgoT().TempDir()
	})

	AfterEach(func() {
		srv.Close()
	})

	run := func(args ...string) (string, error) {
		var out bytes.Buffer
		cmd := recallcmder.NewRecallCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(append(args, "--config-dir", configDir, "--api-target", srv.URL))
		err := cmd.Execute()
		return out.String(), err
	}

	It("adds and searches memories", func() {
		out, err := run("add", "I like tea", "--tags", "drinks,morning", "-u", "alice")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Adding memory"))

		_, err = run("add", "Went hiking", "--tags", "outdoors", "-u", "alice")
		Expect(err).NotTo(HaveOccurred())

		out, err = run("search", "tea", "--tags", "drinks", "--json", "-u", "alice")
		Expect(err).NotTo(HaveOccurred())

		var resp engine.SearchResponse
		Expect(json.Unmarshal([]byte(out), &resp)).To(Succeed())
		Expect(resp.Count).To(Equal(1))
		Expect(resp.Results[0].Content).To(Equal("I like tea"))
	})

	It("reports duplicates on add", func() {
		_, err := run("add", "I like tea", "-u", "alice")
		Expect(err).NotTo(HaveOccurred())

		out, err := run("add", "I like tea", "-u", "alice")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("duplicate of"))
	})

	It("renders search results for people", func() {
		_, err := run("add", "I like tea", "-u", "alice")
		Expect(err).NotTo(HaveOccurred())

		out, err := run("search", "tea", "-u", "alice")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("#1"))
		Expect(out).To(ContainSubstring("I like tea"))
	})

	It("keeps owners apart", func() {
		_, err := run("add", "I like tea", "-u", "alice")
		Expect(err).NotTo(HaveOccurred())

		out, err := run("search", "tea", "-u", "bob", "-p", "home")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("No memories found."))
	})

	It("requires a user", func() {
		_, err := run("search", "tea")
		Expect(err).To(MatchError(ContainSubstring("--user")))
	})

	It("fails to delete an unknown memory", func() {
		out, err := run("delete", "missing", "-u", "alice")
		Expect(err).To(MatchError(ContainSubstring("1 of 1 memories not found")))
		Expect(out).To(ContainSubstring("not found"))
	})

	It("rejects an invalid policy before calling the server", func() {
		_, err := run("add", "I like tea", "--policy", "replace", "-u", "alice")
		Expect(err).To(HaveOccurred())
	})
})
