package postgres

const schemaSQL = `
CREATE TABLE IF NOT EXISTS amm_assets (
	asset          TEXT PRIMARY KEY,
	supply         NUMERIC(20, 0) NOT NULL DEFAULT 0,
	mint_authority TEXT NOT NULL,
	derived        BOOLEAN NOT NULL DEFAULT false,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS amm_accounts (
	asset      TEXT NOT NULL,
	account    TEXT NOT NULL,
	balance    NUMERIC(20, 0) NOT NULL DEFAULT 0,
	authority  TEXT,
	derived    BOOLEAN NOT NULL DEFAULT false,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (asset, account)
);

CREATE TABLE IF NOT EXISTS amm_pools (
	address     TEXT PRIMARY KEY,
	seed        NUMERIC(20, 0) NOT NULL,
	asset_x     TEXT NOT NULL,
	asset_y     TEXT NOT NULL,
	share_asset TEXT NOT NULL,
	vault_x     TEXT NOT NULL,
	vault_y     TEXT NOT NULL,
	fee_bps     INTEGER NOT NULL,
	locked      BOOLEAN NOT NULL DEFAULT false,
	authority   TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`
