package sqlinline

const QListPlans = `--sql 3f7a92d5-6be0-4c18-8a4f-d1c65e08b927
select id, name, price_cents, music_per_month, images_per_month, videos_per_month, active, created_at, updated_at
from plans
where active
order by price_cents asc;
`

const QSelectPlanByID = `--sql ab50c3e8-17d4-4f92-b6a1-0e8d72f5c943
select id, name, price_cents, music_per_month, images_per_month, videos_per_month, active, created_at, updated_at
from plans
where id = $1::uuid;
`

const QAssignUserPlan = `--sql 62e9d0b4-f853-4a76-91c2-7b4e05d8a1f6
update users
set plan_id = (select id from plans where name = $2::text),
    plan_status = 'active',
    period_start = date_trunc('month', now()),
    period_end = date_trunc('month', now()) + interval '1 month',
    updated_at = now()
where id = $1::uuid
returning id, email, (select name from plans where id = users.plan_id);
`

const QSelectUserIDByEmail = `--sql 17c86f2a-95db-4e40-a3b8-6d02e9c7f514
select id from users where email = $1::text;
`
