package sqlinline

const QSelectEntitlement = `--sql b73e8a12-4c60-4d95-a1f8-06e2d97c5b34
select u.plan_status, u.period_start, u.period_end,
       case $2::text
         when 'music' then p.music_per_month
         when 'image' then p.images_per_month
         else p.videos_per_month
       end as max_allowed,
       p.active
from users u
join plans p on p.id = u.plan_id
where u.id = $1::uuid;
`

const QReserveUsage = `--sql 4e06d9c7-81b5-4a23-bc48-f92e07a3d156
insert into usage_counters(user_id, kind, period_start, used)
values ($1::uuid, $2::text, $3::timestamptz, 1)
on conflict (user_id, kind, period_start)
do update set used = usage_counters.used + 1
where usage_counters.used < $4::int
returning used;
`

const QReleaseUsage = `--sql 9f21b4d8-63ae-47c0-85d2-1b7e0c94f6a3
update usage_counters
set used = greatest(used - 1, 0)
where user_id = $1::uuid and kind = $2::text and period_start = $3::timestamptz;
`

const QSelectUsageSummary = `--sql 1a84f6e3-0d27-49b5-b8c1-e5d30a96c742
select c.kind, c.used
from usage_counters c
join users u on u.id = c.user_id and c.period_start = u.period_start
where c.user_id = $1::uuid;
`
