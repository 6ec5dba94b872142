package credentials_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/campusai/campus/pkg/credentials"
)

var _ = Describe("Manager", func() {
	var (
		tmpDir string
		mgr    *credentials.Manager
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()

		var err error
		mgr, err = credentials.NewManager(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	It("targets credentials.toml in the override directory", func() {
		Expect(mgr.GetTarget()).To(Equal(filepath.Join(tmpDir, "credentials.toml")))
	})

	Describe("Load", func() {
		It("returns empty credentials when no file exists", func() {
			creds, err := mgr.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(creds.Providers).To(BeEmpty())
		})

		It("loads existing credentials", func() {
			data := `version = 0

[providers.openai]
api_key = "sk-test-key"
`
			Expect(os.WriteFile(mgr.GetTarget(), []byte(data), 0o600)).To(Succeed())

			Expect(mgr.GetKey("openai")).To(Equal("sk-test-key"))
		})

		It("returns error for malformed TOML", func() {
			Expect(os.WriteFile(mgr.GetTarget(), []byte("[providers"), 0o600)).To(Succeed())

			_, err := mgr.Load()
			Expect(err).To(MatchError(ContainSubstring("parsing credentials")))
		})
	})

	Describe("SetKey, RemoveKey and ListProviders", func() {
		It("stores keys with restricted permissions", func() {
			Expect(mgr.SetKey("openai", "sk-1")).To(Succeed())

			info, err := os.Stat(mgr.GetTarget())
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))
		})

		It("keeps other providers when one changes", func() {
			Expect(mgr.SetKey("openai", "sk-1")).To(Succeed())
			Expect(mgr.SetKey("groq", "gsk-1")).To(Succeed())
			Expect(mgr.SetKey("openai", "sk-2")).To(Succeed())

			Expect(mgr.GetKey("openai")).To(Equal("sk-2"))
			Expect(mgr.GetKey("groq")).To(Equal("gsk-1"))
			Expect(mgr.ListProviders()).To(Equal([]string{"groq", "openai"}))
		})

		It("removes keys and tolerates unknown providers", func() {
			Expect(mgr.SetKey("openai", "sk-1")).To(Succeed())
			Expect(mgr.RemoveKey("openai")).To(Succeed())
			Expect(mgr.RemoveKey("nope")).To(Succeed())

			Expect(mgr.GetKey("openai")).To(BeEmpty())
			Expect(mgr.ListProviders()).To(BeEmpty())
		})

		It("rejects nil credentials", func() {
			Expect(mgr.Save(nil)).To(MatchError("cannot save nil credentials"))
		})
	})

	Describe("UpstreamKey", func() {
		BeforeEach(func() {
			// Keep the real environment and home directory out of the picture.
			GinkgoT().Setenv(credentials.UpstreamKeyEnvVar, "")
			GinkgoT().Setenv("OPENAI_API_KEY", "")
			GinkgoT().Setenv("GROQ_API_KEY", "")
			GinkgoT().Setenv("HOME", tmpDir)
			GinkgoT().Setenv("CAMPUS_HOME", "")
		})

		It("reports nothing configured", func() {
			key, source, err := mgr.UpstreamKey("openai")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(BeEmpty())
			Expect(source).To(Equal(credentials.SourceNone))
		})

		It("prefers CAMPUS_UPSTREAM_API_KEY over everything", func() {
			Expect(mgr.SetKey("openai", "sk-stored")).To(Succeed())
			GinkgoT().Setenv("OPENAI_API_KEY", "sk-openai-env")
			GinkgoT().Setenv(credentials.UpstreamKeyEnvVar, "sk-campus-env")

			key, source, err := mgr.UpstreamKey("openai")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("sk-campus-env"))
			Expect(source).To(Equal(credentials.SourceCampusEnv))
		})

		It("uses the stored key before the provider variable", func() {
			Expect(mgr.SetKey("openai", "sk-stored")).To(Succeed())
			GinkgoT().Setenv("OPENAI_API_KEY", "sk-openai-env")

			key, source, err := mgr.UpstreamKey("openai")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("sk-stored"))
			Expect(source).To(Equal(credentials.SourceStored))
		})

		It("falls back to the provider variable", func() {
			GinkgoT().Setenv("OPENAI_API_KEY", "sk-openai-env")

			key, source, err := mgr.UpstreamKey("openai")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("sk-openai-env"))
			Expect(source).To(Equal(credentials.SourceEnv))
		})

		It("falls back to the codex auth file for openai", func() {
			Expect(os.MkdirAll(filepath.Join(tmpDir, ".codex"), 0o700)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(tmpDir, ".codex", "auth.json"),
				[]byte(`{"OPENAI_API_KEY":"sk-codex"}`), 0o600)).To(Succeed())

			key, source, err := mgr.UpstreamKey("openai")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("sk-codex"))
			Expect(source).To(Equal(credentials.SourceCodex))

			key, _, err = mgr.UpstreamKey("groq")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(BeEmpty())
		})
	})
})

var _ = Describe("providers", func() {
	It("maps providers to their environment variables", func() {
		Expect(credentials.EnvVarForProvider("openai")).To(Equal("OPENAI_API_KEY"))
		Expect(credentials.EnvVarForProvider("groq")).To(Equal("GROQ_API_KEY"))
		Expect(credentials.EnvVarForProvider("anthropic")).To(BeEmpty())
	})

	It("lists supported providers", func() {
		Expect(credentials.SupportedProviders()).To(ContainElements("openai", "openrouter", "groq"))
		Expect(credentials.IsSupportedProvider("openai")).To(BeTrue())
		Expect(credentials.IsSupportedProvider("anthropic")).To(BeFalse())
	})
})
