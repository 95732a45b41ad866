// Package postgres provides the Postgres-backed Store implementation.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jsteinberg1/cucm-phone-info/internal/inventory"
)

// DB is the subset of pgxpool.Pool the store needs. pgxmock satisfies it in
// tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store implements inventory.Store on top of Postgres.
type Store struct {
	db    DB
	close func()
}

// NewStore connects a pgx pool to the given DSN.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: pool, close: pool.Close}, nil
}

// NewStoreWithDB wraps an existing connection, used by tests.
func NewStoreWithDB(db DB) *Store {
	return &Store{db: db, close: func() {}}
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.close()
}

// Migrate creates the inventory tables when they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS phone (
			devicename TEXT PRIMARY KEY,
			firmware TEXT,
			ipv4 TEXT,
			first_seen_reg TIMESTAMPTZ,
			last_seen_reg TIMESTAMPTZ,
			registration_time TIMESTAMPTZ,
			cluster TEXT,
			protocol TEXT,
			model TEXT,
			devicepool TEXT,
			devicecss TEXT,
			description TEXT,
			em_profile TEXT,
			em_time TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS phonescraper (
			devicename TEXT PRIMARY KEY,
			sn TEXT,
			firmware TEXT,
			dn TEXT,
			model TEXT,
			kem1 TEXT,
			kem2 TEXT,
			domain_name TEXT,
			dhcp_server TEXT,
			dhcp TEXT,
			ip_address TEXT,
			subnetmask TEXT,
			gateway TEXT,
			dns1 TEXT,
			dns2 TEXT,
			alt_tftp TEXT,
			tftp1 TEXT,
			tftp2 TEXT,
			op_vlan TEXT,
			admin_vlan TEXT,
			cucm1 TEXT,
			cucm2 TEXT,
			cucm3 TEXT,
			cucm4 TEXT,
			cucm5 TEXT,
			info_url TEXT,
			dir_url TEXT,
			msg_url TEXT,
			svc_url TEXT,
			idle_url TEXT,
			idle_url_time TEXT,
			proxy_url TEXT,
			auth_url TEXT,
			tvs TEXT,
			cdp_neighbor_id TEXT,
			cdp_neighbor_ip TEXT,
			cdp_neighbor_port TEXT,
			lldp_neighbor_id TEXT,
			lldp_neighbor_ip TEXT,
			lldp_neighbor_port TEXT,
			itl TEXT,
			status_messages TEXT[],
			date_modified TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS jobstatus (
			jobname TEXT PRIMARY KEY,
			laststarttime TIMESTAMPTZ,
			result TEXT
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

const selectPhones = `
	SELECT devicename, firmware, ipv4, first_seen_reg, last_seen_reg,
		registration_time, cluster, protocol, model,
		devicepool, devicecss, description, em_profile, em_time
	FROM phone`

// GetPhones returns all phones, optionally scoped to one cluster.
func (s *Store) GetPhones(ctx context.Context, clusterFilter string) ([]inventory.Phone, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if clusterFilter != "" {
		rows, err = s.db.Query(ctx, selectPhones+` WHERE cluster = $1 ORDER BY devicename`, clusterFilter)
	} else {
		rows, err = s.db.Query(ctx, selectPhones+` ORDER BY devicename`)
	}
	if err != nil {
		return nil, fmt.Errorf("query phones: %w", err)
	}
	defer rows.Close()

	var phones []inventory.Phone
	for rows.Next() {
		var p inventory.Phone
		if err := rows.Scan(
			&p.DeviceName, &p.Firmware, &p.IPv4, &p.FirstSeen, &p.LastSeen,
			&p.RegistrationTime, &p.Cluster, &p.Protocol, &p.Model,
			&p.DevicePool, &p.DeviceCSS, &p.Description, &p.EMProfile, &p.EMLoginTime,
		); err != nil {
			return nil, fmt.Errorf("scan phone: %w", err)
		}
		phones = append(phones, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate phones: %w", err)
	}
	return phones, nil
}

const upsertPhone = `
	INSERT INTO phone (devicename, firmware, ipv4, first_seen_reg, last_seen_reg,
		registration_time, cluster, protocol, model,
		devicepool, devicecss, description, em_profile, em_time)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	ON CONFLICT (devicename) DO UPDATE SET
		firmware = EXCLUDED.firmware,
		ipv4 = EXCLUDED.ipv4,
		last_seen_reg = EXCLUDED.last_seen_reg,
		registration_time = EXCLUDED.registration_time,
		cluster = EXCLUDED.cluster,
		protocol = EXCLUDED.protocol,
		model = EXCLUDED.model,
		devicepool = EXCLUDED.devicepool,
		devicecss = EXCLUDED.devicecss,
		description = EXCLUDED.description,
		em_profile = EXCLUDED.em_profile,
		em_time = EXCLUDED.em_time`

// UpsertPhones writes the batch in one transaction. The conflict clause
// leaves first_seen_reg untouched so an existing record keeps its creation
// timestamp.
func (s *Store) UpsertPhones(ctx context.Context, phones []inventory.Phone) error {
	if len(phones) == 0 {
		return nil
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin phone upsert: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	for _, p := range phones {
		name := inventory.NormalizeDeviceName(p.DeviceName)
		firstSeen := p.FirstSeen
		if firstSeen.IsZero() {
			firstSeen = time.Now()
		}
		if _, err := tx.Exec(ctx, upsertPhone,
			name, p.Firmware, p.IPv4, firstSeen, p.LastSeen,
			p.RegistrationTime, p.Cluster, p.Protocol, p.Model,
			p.DevicePool, p.DeviceCSS, p.Description, p.EMProfile, p.EMLoginTime,
		); err != nil {
			return fmt.Errorf("upsert phone %s: %w", name, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit phone upsert: %w", err)
	}
	return nil
}

const upsertScrape = `
	INSERT INTO phonescraper (devicename, sn, firmware, dn, model, kem1, kem2,
		domain_name, dhcp_server, dhcp, ip_address, subnetmask, gateway,
		dns1, dns2, alt_tftp, tftp1, tftp2, op_vlan, admin_vlan,
		cucm1, cucm2, cucm3, cucm4, cucm5,
		info_url, dir_url, msg_url, svc_url, idle_url, idle_url_time,
		proxy_url, auth_url, tvs,
		cdp_neighbor_id, cdp_neighbor_ip, cdp_neighbor_port,
		lldp_neighbor_id, lldp_neighbor_ip, lldp_neighbor_port,
		itl, status_messages, date_modified)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29,
		$30, $31, $32, $33, $34, $35, $36, $37, $38, $39, $40, $41, $42, $43)
	ON CONFLICT (devicename) DO UPDATE SET
		sn = EXCLUDED.sn,
		firmware = EXCLUDED.firmware,
		dn = EXCLUDED.dn,
		model = EXCLUDED.model,
		kem1 = EXCLUDED.kem1,
		kem2 = EXCLUDED.kem2,
		domain_name = EXCLUDED.domain_name,
		dhcp_server = EXCLUDED.dhcp_server,
		dhcp = EXCLUDED.dhcp,
		ip_address = EXCLUDED.ip_address,
		subnetmask = EXCLUDED.subnetmask,
		gateway = EXCLUDED.gateway,
		dns1 = EXCLUDED.dns1,
		dns2 = EXCLUDED.dns2,
		alt_tftp = EXCLUDED.alt_tftp,
		tftp1 = EXCLUDED.tftp1,
		tftp2 = EXCLUDED.tftp2,
		op_vlan = EXCLUDED.op_vlan,
		admin_vlan = EXCLUDED.admin_vlan,
		cucm1 = EXCLUDED.cucm1,
		cucm2 = EXCLUDED.cucm2,
		cucm3 = EXCLUDED.cucm3,
		cucm4 = EXCLUDED.cucm4,
		cucm5 = EXCLUDED.cucm5,
		info_url = EXCLUDED.info_url,
		dir_url = EXCLUDED.dir_url,
		msg_url = EXCLUDED.msg_url,
		svc_url = EXCLUDED.svc_url,
		idle_url = EXCLUDED.idle_url,
		idle_url_time = EXCLUDED.idle_url_time,
		proxy_url = EXCLUDED.proxy_url,
		auth_url = EXCLUDED.auth_url,
		tvs = EXCLUDED.tvs,
		cdp_neighbor_id = EXCLUDED.cdp_neighbor_id,
		cdp_neighbor_ip = EXCLUDED.cdp_neighbor_ip,
		cdp_neighbor_port = EXCLUDED.cdp_neighbor_port,
		lldp_neighbor_id = EXCLUDED.lldp_neighbor_id,
		lldp_neighbor_ip = EXCLUDED.lldp_neighbor_ip,
		lldp_neighbor_port = EXCLUDED.lldp_neighbor_port,
		itl = EXCLUDED.itl,
		status_messages = EXCLUDED.status_messages,
		date_modified = EXCLUDED.date_modified`

// UpsertScrape inserts or replaces one scrape record.
func (s *Store) UpsertScrape(ctx context.Context, sc inventory.PhoneScrape) error {
	name := inventory.NormalizeDeviceName(sc.DeviceName)
	if _, err := s.db.Exec(ctx, upsertScrape,
		name, sc.SerialNumber, sc.Firmware, sc.DN, sc.Model, sc.KEM1, sc.KEM2,
		sc.DomainName, sc.DHCPServer, sc.DHCP, sc.IPAddress, sc.SubnetMask, sc.Gateway,
		sc.DNS1, sc.DNS2, sc.AltTFTP, sc.TFTP1, sc.TFTP2, sc.OpVLAN, sc.AdminVLAN,
		sc.CUCM1, sc.CUCM2, sc.CUCM3, sc.CUCM4, sc.CUCM5,
		sc.InfoURL, sc.DirURL, sc.MsgURL, sc.SvcURL, sc.IdleURL, sc.IdleURLTime,
		sc.ProxyURL, sc.AuthURL, sc.TVS,
		sc.CDPNeighborID, sc.CDPNeighborIP, sc.CDPNeighborPort,
		sc.LLDPNeighborID, sc.LLDPNeighborIP, sc.LLDPNeighborPort,
		sc.ITL, sc.StatusMessages, sc.DateModified,
	); err != nil {
		return fmt.Errorf("upsert scrape %s: %w", name, err)
	}
	return nil
}

const selectScrape = `
	SELECT devicename, sn, firmware, dn, model, kem1, kem2,
		domain_name, dhcp_server, dhcp, ip_address, subnetmask, gateway,
		dns1, dns2, alt_tftp, tftp1, tftp2, op_vlan, admin_vlan,
		cucm1, cucm2, cucm3, cucm4, cucm5,
		info_url, dir_url, msg_url, svc_url, idle_url, idle_url_time,
		proxy_url, auth_url, tvs,
		cdp_neighbor_id, cdp_neighbor_ip, cdp_neighbor_port,
		lldp_neighbor_id, lldp_neighbor_ip, lldp_neighbor_port,
		itl, status_messages, date_modified
	FROM phonescraper
	WHERE devicename = $1`

// GetScrape looks up the scrape record for a device name.
func (s *Store) GetScrape(ctx context.Context, deviceName string) (inventory.PhoneScrape, bool, error) {
	name := inventory.NormalizeDeviceName(deviceName)
	var sc inventory.PhoneScrape
	err := s.db.QueryRow(ctx, selectScrape, name).Scan(
		&sc.DeviceName, &sc.SerialNumber, &sc.Firmware, &sc.DN, &sc.Model, &sc.KEM1, &sc.KEM2,
		&sc.DomainName, &sc.DHCPServer, &sc.DHCP, &sc.IPAddress, &sc.SubnetMask, &sc.Gateway,
		&sc.DNS1, &sc.DNS2, &sc.AltTFTP, &sc.TFTP1, &sc.TFTP2, &sc.OpVLAN, &sc.AdminVLAN,
		&sc.CUCM1, &sc.CUCM2, &sc.CUCM3, &sc.CUCM4, &sc.CUCM5,
		&sc.InfoURL, &sc.DirURL, &sc.MsgURL, &sc.SvcURL, &sc.IdleURL, &sc.IdleURLTime,
		&sc.ProxyURL, &sc.AuthURL, &sc.TVS,
		&sc.CDPNeighborID, &sc.CDPNeighborIP, &sc.CDPNeighborPort,
		&sc.LLDPNeighborID, &sc.LLDPNeighborIP, &sc.LLDPNeighborPort,
		&sc.ITL, &sc.StatusMessages, &sc.DateModified,
	)
	if err == pgx.ErrNoRows {
		return inventory.PhoneScrape{}, false, nil
	}
	if err != nil {
		return inventory.PhoneScrape{}, false, fmt.Errorf("query scrape %s: %w", name, err)
	}
	return sc, true, nil
}

// MarkJobStart overwrites the named job's status record with a running
// sentinel and the current timestamp.
func (s *Store) MarkJobStart(ctx context.Context, jobName string) error {
	const query = `
		INSERT INTO jobstatus (jobname, laststarttime, result)
		VALUES ($1, $2, $3)
		ON CONFLICT (jobname) DO UPDATE SET
			laststarttime = EXCLUDED.laststarttime,
			result = EXCLUDED.result`
	if _, err := s.db.Exec(ctx, query, jobName, time.Now(), "running job.."); err != nil {
		return fmt.Errorf("mark job start %s: %w", jobName, err)
	}
	return nil
}

// MarkJobEnd records the final outcome text for the named job.
func (s *Store) MarkJobEnd(ctx context.Context, jobName string, result string) error {
	const query = `
		INSERT INTO jobstatus (jobname, result)
		VALUES ($1, $2)
		ON CONFLICT (jobname) DO UPDATE SET result = EXCLUDED.result`
	if _, err := s.db.Exec(ctx, query, jobName, result); err != nil {
		return fmt.Errorf("mark job end %s: %w", jobName, err)
	}
	return nil
}

// GetJobStatuses returns every job status record.
func (s *Store) GetJobStatuses(ctx context.Context) ([]inventory.JobStatus, error) {
	rows, err := s.db.Query(ctx, `SELECT jobname, laststarttime, result FROM jobstatus ORDER BY jobname`)
	if err != nil {
		return nil, fmt.Errorf("query job statuses: %w", err)
	}
	defer rows.Close()

	var statuses []inventory.JobStatus
	for rows.Next() {
		var status inventory.JobStatus
		if err := rows.Scan(&status.JobName, &status.LastStartTime, &status.Result); err != nil {
			return nil, fmt.Errorf("scan job status: %w", err)
		}
		statuses = append(statuses, status)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job statuses: %w", err)
	}
	return statuses, nil
}
