package sqlinline

// QCreateCreditSchema bootstraps the tables used by the postgres ledger and
// the credential store. It is idempotent.
const QCreateCreditSchema = `--sql 5d8b3f6a-1e2c-4a9d-b7e4-0c3f9a8d6e78
create table if not exists credit_accounts (
    email       text primary key,
    plan        text not null default 'FREE',
    credits     integer not null default 0 check (credits >= 0),
    usage_count integer not null default 0,
    created_at  timestamptz not null default now(),
    updated_at  timestamptz not null default now()
);

create table if not exists credit_events (
    id            uuid primary key,
    email         text not null references credit_accounts(email),
    delta         integer not null,
    balance_after integer not null,
    reason        text not null,
    created_at    timestamptz not null default now()
);

create index if not exists credit_events_email_idx on credit_events (email, created_at desc);

create table if not exists integration_tokens (
    id         uuid primary key,
    provider   text not null unique,
    token      text not null,
    properties jsonb not null default '{}'::jsonb,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);
`
