package dhcpd

import (
	"database/sql"
	"errors"
	"fmt"
	"net"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const leaseSchema = `
CREATE TABLE IF NOT EXISTS leases (
	ip        TEXT PRIMARY KEY,
	mac       TEXT NOT NULL UNIQUE,
	hostname  TEXT NOT NULL DEFAULT '',
	expire_at INTEGER NOT NULL
)`

// SQLiteStore keeps leases in a SQLite database so clients get the same
// address back across restarts.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens or creates the lease database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open lease database: %w", err)
	}
	if _, err := db.Exec(leaseSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create lease table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveLease(lease *Lease) error {
	// REPLACE drops rows conflicting on either the address or the MAC.
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO leases (ip, mac, hostname, expire_at) VALUES (?, ?, ?, ?)`,
		lease.IP.String(), lease.MAC.String(), lease.Hostname, lease.ExpireAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save lease for %s: %w", lease.IP, err)
	}
	return nil
}

func (s *SQLiteStore) GetLeaseByMAC(mac net.HardwareAddr) (*Lease, error) {
	row := s.db.QueryRow(`SELECT ip, mac, hostname, expire_at FROM leases WHERE mac = ?`, mac.String())
	return scanLease(row)
}

func (s *SQLiteStore) GetLeaseByIP(ip net.IP) (*Lease, error) {
	row := s.db.QueryRow(`SELECT ip, mac, hostname, expire_at FROM leases WHERE ip = ?`, ip.String())
	return scanLease(row)
}

func (s *SQLiteStore) DeleteLease(ip net.IP) error {
	res, err := s.db.Exec(`DELETE FROM leases WHERE ip = ?`, ip.String())
	if err != nil {
		return fmt.Errorf("failed to delete lease for %s: %w", ip, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrLeaseNotFound
	}
	return nil
}

// ListLeases returns all leases ordered by address.
func (s *SQLiteStore) ListLeases() ([]*Lease, error) {
	rows, err := s.db.Query(`SELECT ip, mac, hostname, expire_at FROM leases`)
	if err != nil {
		return nil, fmt.Errorf("failed to list leases: %w", err)
	}
	defer rows.Close()

	var leases []*Lease
	for rows.Next() {
		lease, err := scanLease(rows)
		if err != nil {
			return nil, err
		}
		leases = append(leases, lease)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortLeases(leases)
	return leases, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLease(row rowScanner) (*Lease, error) {
	var ip, mac, hostname string
	var expireAt int64
	if err := row.Scan(&ip, &mac, &hostname, &expireAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLeaseNotFound
		}
		return nil, err
	}

	hw, err := net.ParseMAC(mac)
	if err != nil {
		return nil, fmt.Errorf("invalid MAC in lease database: %w", err)
	}
	return &Lease{
		IP:       net.ParseIP(ip).To4(),
		MAC:      hw,
		Hostname: hostname,
		ExpireAt: time.Unix(expireAt, 0),
	}, nil
}
