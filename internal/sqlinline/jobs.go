package sqlinline

const QInsertJob = `--sql 7c1f2a94-88e7-4a31-9c4f-2a1d6b7e0f53
insert into generation_jobs(
  id, user_id, kind, status, title, input_json, visibility, created_at, updated_at
)
values ($1::uuid, $2::uuid, $3::text, 'pending', $4::text, $5::jsonb, $6::text, now(), now());
`

const QRecordJobSubmitted = `--sql 3b9d61e0-5c44-4f2b-9a77-8e10c4d2af16
update generation_jobs
set status = 'submitted', external_job_id = $2::text, updated_at = now()
where id = $1::uuid and status = 'pending'
returning id;
`

const QRecordJobProcessing = `--sql f4a8c2d7-1e9b-4c60-b3f5-6d28a90e714c
update generation_jobs
set status = 'processing', updated_at = now()
where id = $1::uuid and status = 'submitted'
returning id;
`

const QRecordJobCompleted = `--sql a65e0d38-92cb-47f1-8d04-53b7e6a1c2d9
update generation_jobs
set status = 'completed',
    result_url = $2::text,
    image_url = coalesce(nullif($3::text, ''), image_url),
    error_message = '',
    updated_at = now()
where id = $1::uuid and status in ('submitted', 'processing')
returning id;
`

const QRecordJobFailed = `--sql 58d3b7f2-0a6e-4c19-b8e4-7f1c29d05a36
update generation_jobs
set status = 'failed', error_message = $2::text, result_url = '', updated_at = now()
where id = $1::uuid and status in ('pending', 'submitted', 'processing')
returning id;
`

const QSelectJobStatus = `--sql 91c4e7a0-3f58-4b26-a1d9-0e6b84f72c15
select id, user_id, kind, status, title, input_json, coalesce(external_job_id, ''),
       coalesce(result_url, ''), coalesce(image_url, ''), coalesce(error_message, ''),
       visibility, coalesce(album_id::text, ''), created_at, updated_at
from generation_jobs
where id = $1::uuid;
`

const QSelectTerminalState = `--sql 6e2a95c8-b41d-4f07-9c63-d8507a1be294
select status from generation_jobs where id = $1::uuid;
`

const QListJobsByOwner = `--sql 0d7b3e51-6a92-4c84-bf10-4e95c2d8a763
select id, user_id, kind, status, title, input_json, coalesce(external_job_id, ''),
       coalesce(result_url, ''), coalesce(image_url, ''), coalesce(error_message, ''),
       visibility, coalesce(album_id::text, ''), created_at, updated_at
from generation_jobs
where user_id = $1::uuid
  and ($2::text = '' or kind = $2::text)
  and ($3::text = '' or status = $3::text)
order by created_at desc
limit 200;
`

const QClaimInFlightJobs = `--sql ecf9972a-dc1c-4604-b6ec-b92bf91bdece
with candidates as (
  select id
  from generation_jobs
  where status in ('submitted', 'processing')
    and coalesce(external_job_id, '') <> ''
    and (claimed_at is null or claimed_at < now() - interval '90 seconds')
  order by created_at asc
  limit $2::int
  for update skip locked
),
claimed as (
  update generation_jobs j
  set claimed_by = $1::text, claimed_at = now()
  from candidates c
  where j.id = c.id
  returning j.id, j.user_id, j.kind, j.status, j.title, j.input_json,
            coalesce(j.external_job_id, ''), coalesce(j.result_url, ''),
            coalesce(j.image_url, ''), coalesce(j.error_message, ''),
            j.visibility, coalesce(j.album_id::text, ''), j.created_at, j.updated_at
)
select * from claimed;
`

const QRenewJobClaim = `--sql fb2d45bc-c06e-4413-bc96-8a2103a533d5
update generation_jobs
set claimed_by = $2::text, claimed_at = now()
where id = $1::uuid
  and status in ('submitted', 'processing')
  and (claimed_by is null or claimed_by = $2::text or claimed_at < now() - interval '90 seconds')
returning id;
`

const QUpdateJobMetadata = `--sql 24a9c0e7-5d31-4b68-92fa-c7e81b3d6f05
update generation_jobs
set title = coalesce($3::text, title),
    visibility = coalesce($4::text, visibility),
    album_id = case when $5::text is null then album_id
                    when $5::text = '' then null
                    else $5::uuid end,
    updated_at = now()
where id = $1::uuid and user_id = $2::uuid and status = 'completed'
returning id;
`
