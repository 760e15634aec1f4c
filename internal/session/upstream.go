package session

import (
	"time"

	"github.com/nerrad567/skybridge/internal/auth"
	"github.com/nerrad567/skybridge/internal/infrastructure/config"
	"github.com/nerrad567/skybridge/internal/infrastructure/logging"
	"github.com/nerrad567/skybridge/internal/vivint"
)

// Upstream builds per-request upstream sessions. Clients are cheap and
// never shared between requests, so there is nothing to pool; the
// factory only carries endpoint configuration.
type Upstream struct {
	cfg     config.UpstreamConfig
	timeout time.Duration
	logger  *logging.Logger
}

// NewUpstream creates an upstream session factory.
func NewUpstream(cfg config.UpstreamConfig, timeout time.Duration, logger *logging.Logger) *Upstream {
	return &Upstream{cfg: cfg, timeout: timeout, logger: logger}
}

func (u *Upstream) options(extra ...vivint.Option) []vivint.Option {
	opts := []vivint.Option{
		vivint.WithEndpoints(u.cfg.APIBase, u.cfg.AuthHost, u.cfg.GRPCEndpoint),
		vivint.WithTimeout(u.timeout),
	}
	return append(opts, extra...)
}

// Login builds a client for a fresh password login.
func (u *Upstream) Login(username, password string) *vivint.Client {
	return vivint.NewClient(username, password, "", u.logger, u.options()...)
}

// ResumeMfa rebuilds the client of a parked MFA login so the code
// submission lands in the same identity-host session.
func (u *Upstream) ResumeMfa(mfa *MfaSession) *vivint.Client {
	return vivint.NewClient(mfa.Username, mfa.Password, "", u.logger, u.options(
		vivint.WithCookies(mfa.Cookies),
		vivint.WithVerifier(mfa.CodeVerifier),
		vivint.WithMfaType(mfa.MfaType),
	)...)
}

// Resume builds an account from a stored upstream refresh token. The
// account has no realtime stream; request handlers fetch what they need
// and drop it.
func (u *Upstream) Resume(username, refreshToken string) *vivint.Account {
	client := vivint.NewClient(username, "", refreshToken, u.logger, u.options()...)
	return vivint.NewAccount(client, nil, u.logger)
}

// ResumeClaims is Resume from the refresh token an access token carries.
// Connections that relay realtime events attach their own push stream so
// they can observe messages before and after routing.
func (u *Upstream) ResumeClaims(claims *auth.Claims) *vivint.Account {
	return u.Resume(claims.Username(), claims.VivintRefreshToken)
}
