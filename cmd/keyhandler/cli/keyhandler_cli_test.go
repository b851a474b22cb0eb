package cli

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/effective-security/keyhandler/credential"
	"github.com/effective-security/keyhandler/internal/testkeys"
	"github.com/effective-security/xlog"
)

func (s *testSuite) TestHash() {
	cmd := HashCmd{
		Password: testPassword,
		Time:     1,
		Memory:   1024,
		Threads:  1,
	}
	err := cmd.Run(s.ctl)
	s.Require().NoError(err)
	s.HasText("$argon2id$v=19$m=1024,t=1,p=1$")

	hash := strings.TrimSpace(s.Out.String())
	s.Equal(credential.Match, credential.Verify(hash, testPassword))
}

func (s *testSuite) TestHash_Stdin() {
	s.ctl.WithReader(strings.NewReader(testPassword + "\n"))
	defer s.ctl.WithReader(nil)

	cmd := HashCmd{Time: 1, Memory: 1024, Threads: 1}
	err := cmd.Run(s.ctl)
	s.Require().NoError(err)

	hash := strings.TrimSpace(s.Out.String())
	s.Equal(credential.Match, credential.Verify(hash, testPassword))
}

func (s *testSuite) TestHash_Invalid() {
	cmd := HashCmd{Password: "not valid!", Time: 1, Memory: 1024, Threads: 1}
	s.EqualError(cmd.Run(s.ctl), "password validation failed")

	cmd = HashCmd{Password: testPassword, Time: 0, Memory: 1024, Threads: 1}
	s.EqualError(cmd.Run(s.ctl), "argon2 parameters must be positive")

	s.ctl.WithReader(strings.NewReader(""))
	defer s.ctl.WithReader(nil)
	cmd = HashCmd{Time: 1, Memory: 1024, Threads: 1}
	s.Error(cmd.Run(s.ctl))
}

func (s *testSuite) TestFingerprint() {
	cfg := s.writeConfig("fingerprint", "127.0.0.1:0")

	s.ctl.WithReader(strings.NewReader(testkeys.General))
	defer s.ctl.WithReader(nil)

	cmd := FingerprintCmd{
		Cfg:      cfg,
		Key:      "-",
		Password: testPassword,
	}
	err := cmd.Run(s.ctl)
	s.Require().NoError(err)
	s.Equal("done fingerprint: "+testkeys.GeneralFingerprint+"\n", s.Out.String())
	s.assertNoSandboxes()

	s.Out.Reset()
	s.ctl.WithReader(strings.NewReader(testkeys.General))
	cmd.Password = "d3Jvbmc="
	err = cmd.Run(s.ctl)
	s.EqualError(err, "request failed: wrong_password")
	s.Equal("error: wrong password\n", s.Out.String())

	cmd.Key = filepath.Join(s.tmpdir, "missing.asc")
	err = cmd.Run(s.ctl)
	s.Require().Error(err)
	s.Contains(err.Error(), "unable to load key")

	cmd.Key = ""
	s.Error(cmd.Run(s.ctl))

	cmd.Cfg = filepath.Join(s.tmpdir, "missing.yaml")
	s.Error(cmd.Run(s.ctl))
}

func (s *testSuite) TestServe() {
	cfg := s.writeConfig("serve", "127.0.0.1:0")

	ctx, cancel := context.WithCancel(context.Background())
	c := &Cli{}
	c.WithWriter(&s.Out).WithErrWriter(&s.Out).WithContext(ctx)

	done := make(chan error, 1)
	go func() {
		cmd := ServeCmd{Cfg: cfg, ShutdownTimeout: time.Second}
		done <- cmd.Run(c)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(5 * time.Second):
		s.Fail("serve did not stop")
	}
}

func (s *testSuite) TestServe_BadConfig() {
	cmd := ServeCmd{Cfg: filepath.Join(s.tmpdir, "missing.yaml")}
	s.Error(cmd.Run(s.ctl))

	// listener error
	cfg := s.writeConfig("badaddr", "256.0.0.1:99999")
	cmd = ServeCmd{Cfg: cfg, ShutdownTimeout: time.Second}
	s.Error(cmd.Run(s.ctl))
}

func (s *testSuite) TestLogLevel() {
	c := &Cli{LogLevel: "debug"}
	s.NoError(c.AfterApply(nil, nil))
	s.NoError(c.ApplyConfigLogLevel("INFO"))

	c = &Cli{LogLevel: "bogus"}
	s.Error(c.AfterApply(nil, nil))

	c = &Cli{}
	s.NoError(c.AfterApply(nil, nil))
	s.NoError(c.ApplyConfigLogLevel(""))
	s.NoError(c.ApplyConfigLogLevel("notice"))
	s.Error(c.ApplyConfigLogLevel("bogus"))

	c = &Cli{Debug: true}
	s.NoError(c.AfterApply(nil, nil))

	xlog.SetGlobalLogLevel(xlog.ERROR)
}

func (s *testSuite) TestReadFile() {
	_, err := s.ctl.ReadFile("")
	s.EqualError(err, "empty file name")

	s.ctl.WithReader(strings.NewReader("stdin"))
	defer s.ctl.WithReader(nil)
	b, err := s.ctl.ReadFile("-")
	s.Require().NoError(err)
	s.Equal("stdin", string(b))
}
