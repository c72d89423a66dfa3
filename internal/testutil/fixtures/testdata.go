// Package fixtures provides shared test data constants for the vidhive
// test suite.
//
// Using common constants for test member identities prevents magic
// strings in tests and ensures consistency across packages.
package fixtures

// Standard member identity values used across store, service, and API
// tests. Alice owns the test videos; Bob is the other member for
// ownership denial cases.
const (
	// MemberID is the default member id for unit tests.
	MemberID = "alice"

	// MemberName is the default display name for unit tests.
	MemberName = "Alice"

	// MemberPassword is the default plaintext password for unit tests.
	// This is a deliberately weak value suitable only for tests.
	MemberPassword = "alice-password"

	// AltMemberID is an alternative member id for tests requiring two
	// members.
	AltMemberID = "bob"

	// AltMemberName is an alternative display name.
	AltMemberName = "Bob"

	// AltMemberPassword is the alternative member's plaintext password.
	AltMemberPassword = "bob-password"
)

// Standard token values used in auth and API tests.
const (
	// TokenSigningKey is the HMAC signing key for test token codecs.
	TokenSigningKey = "vidhive-test-signing-key-32-bytes!!"

	// TokenIssuer is the default issuer claim for test tokens.
	TokenIssuer = "https://auth.vidhive.test"
)

// Standard database configuration values used in postgres-backed
// integration tests.
const (
	// TestDBName is the database name test containers are created with.
	TestDBName = "vidhive_test"

	// TestDBUser is the database user for test containers.
	TestDBUser = "vidhive"

	// TestDBPassword is the database password for test containers.
	// This is a deliberately weak value suitable only for tests.
	TestDBPassword = "vidhive-test-password"
)

// Schema is the vidhive schema, applied by integration tests before
// seeding. Kept in sync with the production migrations by the store
// integration tests that exercise every column.
const Schema = `
CREATE TABLE IF NOT EXISTS members (
	seq               BIGSERIAL PRIMARY KEY,
	member_id         TEXT NOT NULL UNIQUE,
	password_hash     TEXT NOT NULL,
	name              TEXT NOT NULL,
	profile_path      TEXT NOT NULL DEFAULT '',
	info              TEXT NOT NULL DEFAULT '',
	role              TEXT NOT NULL DEFAULT 'USER',
	enabled           BOOLEAN NOT NULL DEFAULT TRUE,
	withdrawn_at      TIMESTAMPTZ,
	withdrawal_reason TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS videos (
	seq            BIGSERIAL PRIMARY KEY,
	member_seq     BIGINT NOT NULL REFERENCES members (seq),
	member_id      TEXT NOT NULL,
	video_path     TEXT NOT NULL,
	thumbnail_path TEXT NOT NULL DEFAULT '',
	title          TEXT NOT NULL,
	content        TEXT NOT NULL DEFAULT '',
	published      BOOLEAN NOT NULL DEFAULT FALSE,
	deleted        BOOLEAN NOT NULL DEFAULT FALSE,
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS videos_published_idx
	ON videos (created_at DESC) WHERE published AND NOT deleted;
CREATE INDEX IF NOT EXISTS videos_member_idx
	ON videos (member_id) WHERE NOT deleted;
`
