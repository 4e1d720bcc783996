package sqlinline

// QDebitCredits removes $2 credits only when the balance covers it and logs
// the event in the same statement. No row means the account is missing or
// short; callers re-read the balance to tell the two apart.
const QDebitCredits = `--sql 3f2a7c1e-9b4d-4e8a-a6c2-5d1f0b7e9a34
with debited as (
    update credit_accounts
    set credits = credits - $2::int,
        usage_count = usage_count + $2::int,
        updated_at = now()
    where email = $1::text
      and credits >= $2::int
    returning email, plan, credits
),
logged as (
    insert into credit_events (id, email, delta, balance_after, reason, created_at)
    select $3::uuid, d.email, -$2::int, d.credits, 'generation', now()
    from debited d
)
select plan, credits
from debited;
`

const QSelectCreditAccount = `--sql 8c5e1d2b-4a7f-4b3c-9e6d-2f8a1c0b7d45
select plan, credits
from credit_accounts
where email = $1::text
limit 1;
`

// QOpenCreditAccount inserts the account when missing and returns the stored
// row either way.
const QOpenCreditAccount = `--sql b71d4e9a-2c3f-4d5e-8a1b-6c9f0e3d2a56
with inserted as (
    insert into credit_accounts (email, plan, credits, usage_count, created_at, updated_at)
    values ($1::text, $2::text, $3::int, 0, now(), now())
    on conflict (email) do nothing
    returning plan, credits
)
select plan, credits from inserted
union all
select plan, credits from credit_accounts where email = $1::text
limit 1;
`

const QChangeCreditPlan = `--sql e4a9c2d7-5b1e-4f3a-9c8d-7a2b6e1f0c67
with changed as (
    update credit_accounts
    set plan = $2::text,
        credits = $3::int,
        usage_count = 0,
        updated_at = now()
    where email = $1::text
    returning email, plan, credits
),
logged as (
    insert into credit_events (id, email, delta, balance_after, reason, created_at)
    select $4::uuid, c.email, c.credits, c.credits, 'plan_change:' || c.plan, now()
    from changed c
)
select plan, credits
from changed;
`
