package kv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/miravpn/shop/conf"
	"github.com/miravpn/shop/session"
)

type sessionStoreTestSuite struct {
	suite.Suite
	sessions session.Store
}

func (suite *sessionStoreTestSuite) SetupTest() {
	cfg := conf.Sessions{
		Driver: conf.BadgerDB,
		TTL:    10 * time.Minute,
		InMem:  true,
	}

	sessions, err := NewSessionStore(cfg)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.sessions = sessions
}

func (suite *sessionStoreTestSuite) TearDownTest() {
	suite.sessions.Close()
}

func (suite *sessionStoreTestSuite) TestSetGet() {
	state := session.State{
		Name: "admin_add_server",
		Data: map[string]string{"step": "host"},
	}

	suite.NoError(suite.sessions.Set(100, state))

	got, err := suite.sessions.Get(100)
	suite.NoError(err)
	suite.Equal("admin_add_server", got.Name)
	suite.Equal("host", got.Value("step"))
}

func (suite *sessionStoreTestSuite) TestOverwrite() {
	suite.NoError(suite.sessions.Set(100, session.State{Name: "promocode"}))
	suite.NoError(suite.sessions.Set(100, session.State{Name: "admin_notification"}))

	got, err := suite.sessions.Get(100)
	suite.NoError(err)
	suite.Equal("admin_notification", got.Name)
}

func (suite *sessionStoreTestSuite) TestNotFound() {
	_, err := suite.sessions.Get(42)
	suite.ErrorIs(err, session.ErrSessionNotFound)
}

func (suite *sessionStoreTestSuite) TestClear() {
	suite.NoError(suite.sessions.Set(100, session.State{Name: "promocode"}))
	suite.NoError(suite.sessions.Clear(100))

	_, err := suite.sessions.Get(100)
	suite.ErrorIs(err, session.ErrSessionNotFound)

	// clearing an absent session is not an error
	suite.NoError(suite.sessions.Clear(100))
}

func TestSessionStoreTestSuite(t *testing.T) {
	suite.Run(t, new(sessionStoreTestSuite))
}
