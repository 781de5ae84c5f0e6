package db

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/miravpn/shop/conf"
	"github.com/miravpn/shop/payment"
	"github.com/miravpn/shop/promocode"
	"github.com/miravpn/shop/server"
	"github.com/miravpn/shop/user"
)

func testConfig() conf.Persistence {
	return conf.Persistence{
		Driver: conf.SQLite,
		Name:   "shop",
		InMem:  true,
	}
}

type userRepositoryTestSuite struct {
	suite.Suite
	users user.Repository
	user  *user.User
}

func (suite *userRepositoryTestSuite) SetupSuite() {
	users, err := NewUserRepository(testConfig())
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.users = users
}

func (suite *userRepositoryTestSuite) SetupTest() {
	repo := suite.users.(*userRepository)
	repo.db.Exec("DELETE FROM users")

	u := user.NewUser(123456789, "Alice", "alice")
	suite.users.Store(u)

	suite.user = u
}

func (suite *userRepositoryTestSuite) TestFind() {
	u, err := suite.users.Find(suite.user.ID)
	suite.NoError(err)
	suite.Equal("Alice", u.FirstName)
	suite.Equal(suite.user.VPNID, u.VPNID)
}

func (suite *userRepositoryTestSuite) TestFindByTelegramID() {
	u, err := suite.users.FindByTelegramID(123456789)
	suite.NoError(err)
	suite.Equal(suite.user.ID, u.ID)
}

func (suite *userRepositoryTestSuite) TestFindByVPNID() {
	u, err := suite.users.FindByVPNID(suite.user.VPNID)
	suite.NoError(err)
	suite.Equal(suite.user.ID, u.ID)
}

func (suite *userRepositoryTestSuite) TestNotFound() {
	_, err := suite.users.FindByTelegramID(42)
	suite.ErrorIs(err, user.ErrUserNotFound)
}

func (suite *userRepositoryTestSuite) TestCount() {
	count, err := suite.users.Count()
	suite.NoError(err)
	suite.EqualValues(1, count)
}

func (suite *userRepositoryTestSuite) TestUpdate() {
	suite.user.Rename("Alicia", "alicia")
	suite.NoError(suite.users.Store(suite.user))

	u, err := suite.users.Find(suite.user.ID)
	suite.NoError(err)
	suite.Equal("Alicia", u.FirstName)

	count, _ := suite.users.Count()
	suite.EqualValues(1, count)
}

func TestUserRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(userRepositoryTestSuite))
}

type promocodeRepositoryTestSuite struct {
	suite.Suite
	promocodes promocode.Repository
	code       *promocode.Promocode
}

func (suite *promocodeRepositoryTestSuite) SetupSuite() {
	promocodes, err := NewPromocodeRepository(testConfig())
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.promocodes = promocodes
}

func (suite *promocodeRepositoryTestSuite) SetupTest() {
	repo := suite.promocodes.(*promocodeRepository)
	repo.db.Exec("DELETE FROM promocodes")

	p := promocode.New(30)
	suite.promocodes.Store(p)

	suite.code = p
}

func (suite *promocodeRepositoryTestSuite) TestFind() {
	p, err := suite.promocodes.Find(suite.code.Code)
	suite.NoError(err)
	suite.Equal(30, p.Duration)
	suite.False(p.Activated)
}

func (suite *promocodeRepositoryTestSuite) TestActivation() {
	suite.NoError(suite.code.Activate(100))
	suite.NoError(suite.promocodes.Store(suite.code))

	p, err := suite.promocodes.Find(suite.code.Code)
	suite.NoError(err)
	suite.True(p.Activated)
	suite.EqualValues(100, p.ActivatedBy)

	count, err := suite.promocodes.CountActivated()
	suite.NoError(err)
	suite.EqualValues(1, count)
}

func (suite *promocodeRepositoryTestSuite) TestDelete() {
	suite.NoError(suite.promocodes.Delete(suite.code.Code))

	_, err := suite.promocodes.Find(suite.code.Code)
	suite.ErrorIs(err, promocode.ErrPromocodeNotFound)

	err = suite.promocodes.Delete("NOPE1234")
	suite.ErrorIs(err, promocode.ErrPromocodeNotFound)
}

func TestPromocodeRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(promocodeRepositoryTestSuite))
}

type transactionRepositoryTestSuite struct {
	suite.Suite
	transactions payment.Repository
	transaction  *payment.Transaction
}

func (suite *transactionRepositoryTestSuite) SetupSuite() {
	transactions, err := NewTransactionRepository(testConfig())
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.transactions = transactions
}

func (suite *transactionRepositoryTestSuite) SetupTest() {
	repo := suite.transactions.(*transactionRepository)
	repo.db.Exec("DELETE FROM transactions")

	t := payment.NewTransaction(100, "pay-001", "yookassa", "subscription:pay:0:100:0:3:30:300")
	suite.transactions.Store(t)

	suite.transaction = t
}

func (suite *transactionRepositoryTestSuite) TestFindByPaymentID() {
	t, err := suite.transactions.FindByPaymentID("pay-001")
	suite.NoError(err)
	suite.Equal(suite.transaction.ID, t.ID)
	suite.Equal(payment.Pending, t.Status)
}

func (suite *transactionRepositoryTestSuite) TestStatusRoundTrip() {
	suite.transaction.Complete()
	suite.NoError(suite.transactions.Store(suite.transaction))

	t, err := suite.transactions.Find(suite.transaction.ID)
	suite.NoError(err)
	suite.Equal(payment.Completed, t.Status)

	count, err := suite.transactions.CountByStatus(payment.Completed)
	suite.NoError(err)
	suite.EqualValues(1, count)
}

func (suite *transactionRepositoryTestSuite) TestListByTelegramID() {
	other := payment.NewTransaction(200, "pay-002", "yookassa", "subscription:pay:0:200:0:1:30:150")
	suite.transactions.Store(other)

	list, err := suite.transactions.ListByTelegramID(100)
	suite.NoError(err)
	suite.Len(list, 1)
	suite.Equal("pay-001", list[0].PaymentID)
}

func TestTransactionRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(transactionRepositoryTestSuite))
}

type serverRepositoryTestSuite struct {
	suite.Suite
	servers server.Repository
}

func (suite *serverRepositoryTestSuite) SetupSuite() {
	servers, err := NewServerRepository(testConfig())
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.servers = servers
}

func (suite *serverRepositoryTestSuite) SetupTest() {
	repo := suite.servers.(*serverRepository)
	repo.db.Exec("DELETE FROM servers")

	s, _ := server.New("nl-1", "https://nl1.example.com", "https://nl1.example.com/sub/", 100)
	suite.servers.Store(s)
}

func (suite *serverRepositoryTestSuite) TestFind() {
	s, err := suite.servers.Find("nl-1")
	suite.NoError(err)
	suite.Equal("https://nl1.example.com", s.Host)
	suite.Equal(100, s.MaxClients)
}

func (suite *serverRepositoryTestSuite) TestDelete() {
	suite.NoError(suite.servers.Delete("nl-1"))

	_, err := suite.servers.Find("nl-1")
	suite.ErrorIs(err, server.ErrServerNotFound)

	err = suite.servers.Delete("nl-1")
	suite.ErrorIs(err, server.ErrServerNotFound)
}

func (suite *serverRepositoryTestSuite) TestListAll() {
	s, _ := server.New("de-1", "https://de1.example.com", "https://de1.example.com/sub/", 50)
	suite.servers.Store(s)

	servers, err := suite.servers.ListAll()
	suite.NoError(err)
	suite.Len(servers, 2)
}

func TestServerRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(serverRepositoryTestSuite))
}
