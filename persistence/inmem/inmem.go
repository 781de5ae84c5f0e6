// Package inmem backs the repositories with plain maps, for tests and for
// running without a database file.
package inmem

import (
	"sync"

	"github.com/miravpn/shop/payment"
	"github.com/miravpn/shop/promocode"
	"github.com/miravpn/shop/server"
	"github.com/miravpn/shop/user"
)

func NewUserRepository() (user.Repository, error) {
	repo := &userRepository{
		users: make(map[string]*user.User),
	}
	return repo, nil
}

type userRepository struct {
	users map[string]*user.User // id -> user
	sync.RWMutex
}

func (repo *userRepository) Store(u *user.User) error {
	repo.Lock()
	defer repo.Unlock()

	repo.users[u.ID.String()] = u
	return nil
}

func (repo *userRepository) ListAll() ([]*user.User, error) {
	repo.RLock()
	defer repo.RUnlock()

	users := make([]*user.User, 0, len(repo.users))
	for _, u := range repo.users {
		users = append(users, u)
	}

	return users, nil
}

func (repo *userRepository) Count() (int64, error) {
	repo.RLock()
	defer repo.RUnlock()

	return int64(len(repo.users)), nil
}

func (repo *userRepository) Find(id user.UserID) (*user.User, error) {
	repo.RLock()
	defer repo.RUnlock()

	u, ok := repo.users[id.String()]
	if !ok {
		return nil, user.ErrUserNotFound
	}

	return u, nil
}

func (repo *userRepository) FindByTelegramID(telegramID int64) (*user.User, error) {
	repo.RLock()
	defer repo.RUnlock()

	for _, u := range repo.users {
		if u.TelegramID == telegramID {
			return u, nil
		}
	}

	return nil, user.ErrUserNotFound
}

func (repo *userRepository) FindByVPNID(vpnID string) (*user.User, error) {
	repo.RLock()
	defer repo.RUnlock()

	for _, u := range repo.users {
		if u.VPNID == vpnID {
			return u, nil
		}
	}

	return nil, user.ErrUserNotFound
}

func (repo *userRepository) Close() error {
	return nil
}

func NewPromocodeRepository() (promocode.Repository, error) {
	repo := &promocodeRepository{
		codes: make(map[string]*promocode.Promocode),
	}
	return repo, nil
}

type promocodeRepository struct {
	codes map[string]*promocode.Promocode
	sync.RWMutex
}

func (repo *promocodeRepository) Store(p *promocode.Promocode) error {
	repo.Lock()
	defer repo.Unlock()

	repo.codes[p.Code] = p
	return nil
}

func (repo *promocodeRepository) Delete(code string) error {
	repo.Lock()
	defer repo.Unlock()

	if _, ok := repo.codes[code]; !ok {
		return promocode.ErrPromocodeNotFound
	}

	delete(repo.codes, code)
	return nil
}

func (repo *promocodeRepository) ListAll() ([]*promocode.Promocode, error) {
	repo.RLock()
	defer repo.RUnlock()

	codes := make([]*promocode.Promocode, 0, len(repo.codes))
	for _, p := range repo.codes {
		codes = append(codes, p)
	}

	return codes, nil
}

func (repo *promocodeRepository) CountActivated() (int64, error) {
	repo.RLock()
	defer repo.RUnlock()

	var count int64
	for _, p := range repo.codes {
		if p.Activated {
			count++
		}
	}

	return count, nil
}

func (repo *promocodeRepository) Find(code string) (*promocode.Promocode, error) {
	repo.RLock()
	defer repo.RUnlock()

	p, ok := repo.codes[code]
	if !ok {
		return nil, promocode.ErrPromocodeNotFound
	}

	return p, nil
}

func (repo *promocodeRepository) Close() error {
	return nil
}

func NewServerRepository() (server.Repository, error) {
	repo := &serverRepository{
		servers: make(map[string]*server.Server),
	}
	return repo, nil
}

type serverRepository struct {
	servers map[string]*server.Server
	sync.RWMutex
}

func (repo *serverRepository) Store(s *server.Server) error {
	repo.Lock()
	defer repo.Unlock()

	repo.servers[s.Name] = s
	return nil
}

func (repo *serverRepository) Delete(name string) error {
	repo.Lock()
	defer repo.Unlock()

	if _, ok := repo.servers[name]; !ok {
		return server.ErrServerNotFound
	}

	delete(repo.servers, name)
	return nil
}

func (repo *serverRepository) ListAll() ([]*server.Server, error) {
	repo.RLock()
	defer repo.RUnlock()

	servers := make([]*server.Server, 0, len(repo.servers))
	for _, s := range repo.servers {
		servers = append(servers, s)
	}

	return servers, nil
}

func (repo *serverRepository) Find(name string) (*server.Server, error) {
	repo.RLock()
	defer repo.RUnlock()

	s, ok := repo.servers[name]
	if !ok {
		return nil, server.ErrServerNotFound
	}

	return s, nil
}

func (repo *serverRepository) Close() error {
	return nil
}

func NewTransactionRepository() (payment.Repository, error) {
	repo := &transactionRepository{
		transactions: make(map[string]*payment.Transaction),
	}
	return repo, nil
}

type transactionRepository struct {
	transactions map[string]*payment.Transaction // id -> transaction
	sync.RWMutex
}

func (repo *transactionRepository) Store(t *payment.Transaction) error {
	repo.Lock()
	defer repo.Unlock()

	repo.transactions[t.ID.String()] = t
	return nil
}

func (repo *transactionRepository) Find(id payment.TransactionID) (*payment.Transaction, error) {
	repo.RLock()
	defer repo.RUnlock()

	t, ok := repo.transactions[id.String()]
	if !ok {
		return nil, payment.ErrTransactionNotFound
	}

	return t, nil
}

func (repo *transactionRepository) FindByPaymentID(paymentID string) (*payment.Transaction, error) {
	repo.RLock()
	defer repo.RUnlock()

	for _, t := range repo.transactions {
		if t.PaymentID == paymentID {
			return t, nil
		}
	}

	return nil, payment.ErrTransactionNotFound
}

func (repo *transactionRepository) ListByTelegramID(telegramID int64) ([]*payment.Transaction, error) {
	repo.RLock()
	defer repo.RUnlock()

	transactions := make([]*payment.Transaction, 0)
	for _, t := range repo.transactions {
		if t.TelegramID == telegramID {
			transactions = append(transactions, t)
		}
	}

	return transactions, nil
}

func (repo *transactionRepository) CountByStatus(status payment.Status) (int64, error) {
	repo.RLock()
	defer repo.RUnlock()

	var count int64
	for _, t := range repo.transactions {
		if t.Status == status {
			count++
		}
	}

	return count, nil
}

func (repo *transactionRepository) Close() error {
	return nil
}
