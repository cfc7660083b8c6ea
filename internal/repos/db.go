package repos

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/xxwlkq/ecommerce-system/internal/domain"
	applog "github.com/xxwlkq/ecommerce-system/internal/log"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// OpenDB opens the SQLite database, applies the schema and ensures the
// reserved anonymous user exists. The pool is limited to one connection:
// SQLite has a single writer anyway, and ":memory:" databases live per connection.
func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, err
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	if err := seedAnonymous(db); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Products; AUTOINCREMENT never hands out the id of a deleted product
CREATE TABLE IF NOT EXISTS products(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  category TEXT NOT NULL,
  price TEXT NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
  description TEXT NOT NULL DEFAULT '',
  image TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);

-- Users & Sessions
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT '',
  balance TEXT NOT NULL DEFAULT '0',
  is_admin INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_phone ON users(phone) WHERE phone != '';

CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,               -- same value as the 'sid' cookie
  user_id TEXT NULL REFERENCES users(id) ON DELETE SET NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  last_seen  TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

CREATE TABLE IF NOT EXISTS favorites(
  user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  product_id INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (user_id, product_id)
);

-- Carts, one line per (user, product)
CREATE TABLE IF NOT EXISTS cart_items(
  user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  product_id INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
  quantity   INTEGER NOT NULL CHECK (quantity >= 1),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT,
  PRIMARY KEY (user_id, product_id)
);

CREATE TABLE IF NOT EXISTS addresses(
  id INTEGER PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  receiver TEXT NOT NULL,
  phone TEXT NOT NULL,
  province TEXT NOT NULL DEFAULT '',
  city TEXT NOT NULL DEFAULT '',
  detail TEXT NOT NULL,
  is_default INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_addresses_user ON addresses(user_id);

-- Orders keep a frozen item snapshot, no product foreign key
CREATE TABLE IF NOT EXISTS orders(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id TEXT NOT NULL,
  username TEXT NOT NULL,
  address_id INTEGER NULL,
  items_json TEXT NOT NULL,
  total_amount TEXT NOT NULL,
  status TEXT NOT NULL CHECK (status IN ('paid','cancelled')),
  created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);

-- Append-only action log
CREATE TABLE IF NOT EXISTS user_actions(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  ts TEXT NOT NULL,
  user_id TEXT NOT NULL,
  username TEXT NOT NULL DEFAULT '',
  product_id INTEGER NOT NULL DEFAULT 0,
  product_name TEXT NOT NULL DEFAULT '',
  product_category TEXT NOT NULL DEFAULT '',
  action_type TEXT NOT NULL,
  session_id TEXT NOT NULL DEFAULT '',
  quantity INTEGER NOT NULL DEFAULT 0,
  total_amount TEXT NOT NULL DEFAULT '0'
);
CREATE INDEX IF NOT EXISTS idx_actions_user ON user_actions(user_id);
CREATE INDEX IF NOT EXISTS idx_actions_type ON user_actions(action_type);
`
	_, err := db.Exec(schema)
	return err
}

func seedAnonymous(db *sqlx.DB) error {
	_, err := db.Exec(`
		INSERT INTO users(id, username, password_hash, phone, balance, is_admin)
		VALUES(?, ?, '', '', '0', 0)
		ON CONFLICT(id) DO NOTHING
	`, domain.AnonymousID, domain.AnonymousUsername)
	return err
}

// SeedDemo inserts the demo catalog when it is empty and ensures the demo
// accounts exist. Safe to run on every startup.
func SeedDemo(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM products`); err != nil {
		return err
	}
	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	if n == 0 {
		applog.L().Info("seed.catalog")
		tx.MustExec(`INSERT INTO products(id,name,category,price,stock,description,image) VALUES
		  (1,'iPhone 15 Pro','Phones','7999',100,'A17 Pro chip, Super Retina XDR display, IP68','iphone15.jpg'),
		  (2,'MacBook Air','Computers','8999',50,'M2 chip, 13.6-inch Liquid Retina, 18h battery','macbook.jpg'),
		  (3,'AirPods Pro 2','Phones','1999',200,'Active noise cancelling, spatial audio, MagSafe case','airpods.jpg'),
		  (4,'Huawei Mate 60 Pro','Phones','6999',80,'Kirin 9000S, satellite calling','huawei_mate60.jpg'),
		  (5,'Xiaomi Pad 6','Computers','2499',150,'2.8K LCD, Snapdragon 870, stylus support','mi_pad6.jpg'),
		  (6,'Dyson Hair Dryer','Home','2790',60,'Ionic care, six speed settings','dyson_hairdryer.jpg'),
		  (7,'SK-II Facial Essence','Beauty','1590',90,'PITERA essence, balances skin','sk2.jpg'),
		  (8,'Nike Air Max','Apparel','1299',120,'Full-length air cushioning, breathable mesh','nike_airmax.jpg')`)
	}

	type u struct {
		ID, Username, Phone, Balance, Hash string
		Admin                              bool
	}
	users := []u{
		{ID: "u-admin", Username: "admin", Phone: "13800000000", Balance: "0", Admin: true},
		{ID: "u-alice", Username: "alice", Phone: "13800000001", Balance: "10000"},
		{ID: "u-bob", Username: "bob", Phone: "13800000002", Balance: "500"},
	}
	for _, x := range users {
		h, err := hashPassword(demoPassword)
		if err != nil {
			return fmt.Errorf("seed %s: %w", x.Username, err)
		}
		x.Hash = h
		if _, err := tx.Exec(`
			INSERT INTO users(id,username,password_hash,phone,balance,is_admin)
			VALUES(?,?,?,?,?,?)
			ON CONFLICT DO NOTHING
		`, x.ID, x.Username, x.Hash, x.Phone, x.Balance, x.Admin); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	applog.L().Info("seed.users", zap.Int("count", len(users)))
	return nil
}

const demoPassword = "Passw0rd!"

// hashPassword is swappable so tests can force the seed to fail.
var hashPassword = func(pw string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(h), err
}

// Repos bundles the stores over one query handle (db or tx).
type Repos struct {
	Products  *ProductRepo
	Users     *UserRepo
	Carts     *CartRepo
	Orders    *OrderRepo
	Actions   *ActionRepo
	Addresses *AddressRepo
}

func NewRepos(q sqlx.ExtContext) *Repos {
	return &Repos{
		Products:  NewProductRepo(q),
		Users:     NewUserRepo(q),
		Carts:     NewCartRepo(q),
		Orders:    NewOrderRepo(q),
		Actions:   NewActionRepo(q),
		Addresses: NewAddressRepo(q),
	}
}

// Store is the database plus repos bound to it.
type Store struct {
	DB *sqlx.DB
	*Repos
}

func NewStore(db *sqlx.DB) *Store { return &Store{DB: db, Repos: NewRepos(db)} }

// WithTx runs fn with repos bound to a transaction, committing when fn
// returns nil. fn must not use the Store's own repos: the pool holds a
// single connection.
func (s *Store) WithTx(ctx context.Context, fn func(r *Repos) error) error {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(NewRepos(tx)); err != nil {
		return err
	}
	return tx.Commit()
}

func isUnique(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return false
}

func rowsOrNotFound(n int64, err error) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
