package sqlinline

const QListPublicTracks = `--sql 6c18f4b9-0ad7-4e35-92c6-8e53d0a7f162
select j.id, j.user_id, coalesce(j.title, ''), coalesce(j.result_url, ''), coalesce(j.image_url, ''),
       coalesce(b.name, ''), count(p.id) as plays, j.created_at
from generation_jobs j
left join bands b on b.user_id = j.user_id
left join play_events p on p.job_id = j.id
where j.status = 'completed'
  and j.visibility = 'public'
  and j.kind in ('text_to_music', 'audio_to_music')
group by j.id, b.name
order by plays desc, j.created_at desc
limit $1::int;
`

const QInsertPlayEvent = `--sql 35d09c72-e6b4-4f18-a5d0-1b87f4c6e920
insert into play_events(id, job_id, country, created_at)
select gen_random_uuid(), $1::uuid, $2::text, now()
where exists (
  select 1 from generation_jobs
  where id = $1::uuid and status = 'completed'
);
`

const QAdminStatsSummary = `--sql 82b5f0d3-47ce-4a91-b8e2-6d09c3f7a584
select
  (select count(*) from users),
  (select count(*) from generation_jobs where kind in ('text_to_music', 'audio_to_music') and status = 'completed'),
  (select count(*) from generation_jobs where status = 'failed'),
  (select count(*) from generation_jobs where status in ('pending', 'submitted', 'processing')),
  (select count(*) from generation_jobs where created_at > now() - interval '24 hours'),
  (select count(*) from play_events where created_at > now() - interval '24 hours');
`

const QSelectSetting = `--sql 47e1a8c5-92f6-4d03-b7a4-e58d20c9f316
select value from site_settings where key = $1::text;
`
