package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/campusai/campus/pkg/config"
)

var _ = Describe("Configer config", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	Describe("LoadConfig", func() {
		It("returns default config when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).To(Equal(config.NewDefaultConfig()))
		})

		It("loads a valid config file and fills in defaults", func() {
			data := `version = 0

[gateway]
upstream = "https://llm.campus.example.edu/v1"
rate_limit_rps = 2.5

[storage]
sqlite_path = "/var/lib/campus/news.db"
`
			Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Gateway.Upstream).To(Equal("https://llm.campus.example.edu/v1"))
			Expect(cfg.Gateway.RateLimitRPS).To(Equal(2.5))
			Expect(cfg.Storage.SQLitePath).To(Equal("/var/lib/campus/news.db"))

			defaults := config.NewDefaultConfig()
			Expect(cfg.Gateway.Listen).To(Equal(defaults.Gateway.Listen))
			Expect(cfg.Gateway.DefaultPersona).To(Equal("tutor"))
			Expect(cfg.Auth.TokenTTL).To(Equal(defaults.Auth.TokenTTL))
			Expect(cfg.EventStream.KafkaTopic).To(Equal("campus.relay"))
			Expect(cfg.Client.GatewayTarget).To(Equal("http://localhost:8080"))
		})

		It("returns error for malformed TOML", func() {
			Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("[gateway\nlisten ="), 0o600)).To(Succeed())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("parsing config TOML")))
		})

		It("returns error for unsupported config version", func() {
			Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("version = 7\n"), 0o600)).To(Succeed())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("unsupported config version 7")))
		})
	})

	Describe("SaveConfig", func() {
		It("persists config to disk with owner-only permissions", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg := config.NewDefaultConfig()
			cfg.Auth.JWTSecret = "s3cret"
			Expect(c.SaveConfig(cfg)).To(Succeed())

			info, err := os.Stat(c.GetTarget())
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))

			loaded, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(cfg))
		})

		It("returns error for nil config", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SaveConfig(nil)).To(MatchError("cannot save nil config"))
		})
	})

	Describe("SetConfigValue and GetConfigValue", func() {
		var c *config.Configer

		BeforeEach(func() {
			var err error
			c, err = config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
		})

		It("sets and reads back a string key", func() {
			Expect(c.SetConfigValue("gateway.model", "gpt-4o")).To(Succeed())

			value, err := c.GetConfigValue("gateway.model")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("gpt-4o"))
		})

		It("preserves existing values when setting a new key", func() {
			Expect(c.SetConfigValue("client.token", "abc")).To(Succeed())
			Expect(c.SetConfigValue("gateway.rate_limit_burst", "4")).To(Succeed())

			Expect(c.GetConfigValue("client.token")).To(Equal("abc"))
			Expect(c.GetConfigValue("gateway.rate_limit_burst")).To(Equal("4"))
		})

		It("returns default values when no config file exists", func() {
			Expect(c.GetConfigValue("gateway.listen")).To(Equal(":8080"))
			Expect(c.GetConfigValue("auth.token_ttl")).To(Equal((24 * time.Hour).String()))
		})

		It("returns empty string for numeric keys left at zero", func() {
			Expect(c.GetConfigValue("gateway.rate_limit_rps")).To(BeEmpty())
		})

		DescribeTable("rejects invalid values",
			func(key, value string) {
				Expect(c.SetConfigValue(key, value)).To(MatchError(ContainSubstring(key)))
			},
			Entry("non-numeric rps", "gateway.rate_limit_rps", "fast"),
			Entry("negative rps", "gateway.rate_limit_rps", "-1"),
			Entry("non-numeric burst", "gateway.rate_limit_burst", "many"),
			Entry("bad duration", "auth.token_ttl", "a week"),
		)

		It("returns error for unknown key", func() {
			Expect(c.SetConfigValue("proxy.provider", "openai")).To(MatchError(ContainSubstring("unknown config key")))
			_, err := c.GetConfigValue("proxy.provider")
			Expect(err).To(MatchError(ContainSubstring("unknown config key")))
		})
	})

	Describe("ValidConfigKeys", func() {
		It("returns every key in section order", func() {
			keys := config.ValidConfigKeys()
			Expect(keys).To(HaveLen(17))
			Expect(keys[0]).To(Equal("gateway.listen"))
			Expect(keys[len(keys)-1]).To(Equal("client.token"))
			for _, k := range keys {
				Expect(config.IsValidConfigKey(k)).To(BeTrue(), k)
			}
		})

		It("flags secret keys", func() {
			Expect(config.IsSecretKey("auth.jwt_secret")).To(BeTrue())
			Expect(config.IsSecretKey("client.token")).To(BeTrue())
			Expect(config.IsSecretKey("storage.postgres_dsn")).To(BeTrue())
			Expect(config.IsSecretKey("gateway.listen")).To(BeFalse())
			Expect(config.IsSecretKey("nope")).To(BeFalse())
		})
	})
})

var _ = Describe("ParseTokenTTL", func() {
	It("uses the default for an empty value", func() {
		Expect(config.ParseTokenTTL("")).To(Equal(24 * time.Hour))
	})

	It("parses durations", func() {
		Expect(config.ParseTokenTTL("90m")).To(Equal(90 * time.Minute))
	})

	It("rejects non-positive durations", func() {
		_, err := config.ParseTokenTTL("0s")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("InitViper", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	It("returns viper with defaults when no config file exists", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(config.FromViper(v)).To(Equal(config.NewDefaultConfig()))
	})

	It("reads config file values over defaults", func() {
		data := `[gateway]
listen = ":9090"

[eventstream]
kafka_brokers = "kafka-1:9092,kafka-2:9092"
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cfg := config.FromViper(v)
		Expect(cfg.Gateway.Listen).To(Equal(":9090"))
		Expect(cfg.EventStream.KafkaBrokers).To(Equal("kafka-1:9092,kafka-2:9092"))
		Expect(cfg.EventStream.KafkaTopic).To(Equal("campus.relay"))
	})

	It("env vars take precedence over config file values", func() {
		data := `[auth]
jwt_secret = "from-file"
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())
		GinkgoT().Setenv("CAMPUS_AUTH_JWT_SECRET", "from-env")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(config.FromViper(v).Auth.JWTSecret).To(Equal("from-env"))
	})
})

var _ = Describe("Flags", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	It("binds a changed flag over config and env", func() {
		GinkgoT().Setenv("CAMPUS_GATEWAY_LISTEN", ":6000")
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		var listen string
		config.AddStringFlag(cmd, config.Flags, config.FlagListen, &listen)
		Expect(cmd.Flags().Set("listen", ":7777")).To(Succeed())

		config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagListen})
		Expect(v.GetString("gateway.listen")).To(Equal(":7777"))
	})

	It("falls through to config when the flag is not set", func() {
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("[gateway]\nlisten = \":5555\"\n"), 0o600)).To(Succeed())
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		var listen string
		config.AddStringFlag(cmd, config.Flags, config.FlagListen, &listen)

		config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagListen, "nonexistent"})
		Expect(v.GetString("gateway.listen")).To(Equal(":5555"))
	})

	It("takes name, shorthand, default and usage from the registry", func() {
		cmd := &cobra.Command{Use: "test"}
		var target string
		var burst int
		var rps float64
		config.AddStringFlag(cmd, config.Flags, config.FlagGatewayTarget, &target)
		config.AddIntFlag(cmd, config.Flags, config.FlagRateLimitBurst, &burst)
		config.AddFloatFlag(cmd, config.Flags, config.FlagRateLimitRPS, &rps)

		f := cmd.Flags().Lookup("gateway")
		Expect(f).NotTo(BeNil())
		Expect(f.Shorthand).To(Equal("g"))
		Expect(f.DefValue).To(Equal("http://localhost:8080"))
		Expect(f.Usage).To(Equal("Campus gateway URL"))

		Expect(cmd.Flags().Lookup("rate-limit-burst")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("rate-limit-rps").DefValue).To(Equal("0"))
	})
})

var _ = Describe("LoadDotEnv", func() {
	It("loads variables without overriding existing ones", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, ".env")
		Expect(os.WriteFile(path, []byte("CAMPUS_TEST_DOTENV_A=from-file\nCAMPUS_TEST_DOTENV_B=from-file\n"), 0o600)).To(Succeed())

		GinkgoT().Setenv("CAMPUS_TEST_DOTENV_B", "from-env")
		GinkgoT().Setenv("CAMPUS_TEST_DOTENV_A", "")
		Expect(os.Unsetenv("CAMPUS_TEST_DOTENV_A")).To(Succeed())

		Expect(config.LoadDotEnv(path)).To(Succeed())
		Expect(os.Getenv("CAMPUS_TEST_DOTENV_A")).To(Equal("from-file"))
		Expect(os.Getenv("CAMPUS_TEST_DOTENV_B")).To(Equal("from-env"))
	})

	It("skips missing files", func() {
		Expect(config.LoadDotEnv(filepath.Join(GinkgoT().TempDir(), "missing.env"))).To(Succeed())
	})
})
