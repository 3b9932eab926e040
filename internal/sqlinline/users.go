package sqlinline

const QUpsertUserByGoogleSub = `--sql 5c2e9b70-d481-4f36-a0c5-78b1e4d962af
insert into users(id, google_sub, email, name, picture, role, plan_id, plan_status, period_start, period_end, created_at, updated_at)
values (gen_random_uuid(), $1::text, $2::text, $3::text, $4::text, 'user',
        (select id from plans where name = 'free' limit 1), 'active',
        date_trunc('month', now()), date_trunc('month', now()) + interval '1 month', now(), now())
on conflict (google_sub)
do update set email = excluded.email, name = excluded.name, picture = excluded.picture, updated_at = now()
returning id, google_sub, email, name, picture, role, coalesce(plan_id::text, ''), plan_status,
          period_start, period_end, coalesce(billing_customer, ''), created_at, updated_at;
`

const QSelectUserByID = `--sql e97c50a4-2b68-4d13-9f07-c6a58d21b3e0
select id, google_sub, email, name, picture, role, coalesce(plan_id::text, ''), plan_status,
       period_start, period_end, coalesce(billing_customer, ''), created_at, updated_at
from users
where id = $1::uuid;
`

const QSelectUserByBillingCustomer = `--sql 72d50f93-8e1c-4a67-b420-95c3e6b8d1f7
select id, google_sub, email, name, picture, role, coalesce(plan_id::text, ''), plan_status,
       period_start, period_end, coalesce(billing_customer, ''), created_at, updated_at
from users
where billing_customer = $1::text;
`

const QApplySubscription = `--sql 0b6f3d82-c594-41ae-87d0-3e92b5c7a614
update users
set plan_id = coalesce((select id from plans where name = $2::text), plan_id),
    plan_status = $3::text,
    billing_customer = $1::text,
    updated_at = now()
where billing_customer = $1::text or email = $4::text
returning id;
`

const QRollBillingPeriod = `--sql d45a81c6-79f0-4e2b-b5d3-8a06c1e9f273
update users
set period_start = $2::timestamptz,
    period_end = $3::timestamptz,
    plan_status = 'active',
    updated_at = now()
where billing_customer = $1::text
returning id;
`

const QMarkPastDue = `--sql 86b1e4f9-3da7-40c5-92e8-5f70d2a6c8b1
update users
set plan_status = 'past_due', updated_at = now()
where billing_customer = $1::text
returning id;
`
