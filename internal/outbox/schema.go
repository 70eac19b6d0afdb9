package outbox

// NotifyChannel is the Postgres channel the insert trigger signals. The
// worker may LISTEN on it to cut idle latency; polling stays correct with the
// trigger absent.
const NotifyChannel = "graph_outbox_wakeup"

const schema = `CREATE TABLE IF NOT EXISTS graph_outbox (
    id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    event_kind  TEXT NOT NULL,
    payload     JSONB NOT NULL,
    occurred_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    attempts    INT NOT NULL DEFAULT 0 CHECK (attempts >= 0),
    status      TEXT NOT NULL DEFAULT 'pending'
                CHECK (status IN ('pending', 'processing', 'done', 'failed')),
    error       TEXT
);

CREATE INDEX IF NOT EXISTS graph_outbox_claim_idx
    ON graph_outbox (status, occurred_at);

CREATE OR REPLACE FUNCTION graph_outbox_notify() RETURNS trigger AS $$
BEGIN
    PERFORM pg_notify('graph_outbox_wakeup', '');
    RETURN NULL;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS graph_outbox_notify_insert ON graph_outbox;
CREATE TRIGGER graph_outbox_notify_insert
    AFTER INSERT ON graph_outbox
    FOR EACH STATEMENT EXECUTE FUNCTION graph_outbox_notify();
`

// Schema returns the reference DDL for the outbox table, its claim index,
// and the insert-notification trigger. Producers and the engine share this
// one definition; the engine never runs it itself.
func Schema() string {
	return schema
}
