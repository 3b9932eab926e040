package sqlinline

const QInsertAlbum = `--sql 8d3c50f7-2a9e-4b61-b0d4-c7e18f62a5d9
insert into albums(id, user_id, title, cover_url, visibility, created_at, updated_at)
values ($1::uuid, $2::uuid, $3::text, $4::text, $5::text, now(), now());
`

const QSelectAlbum = `--sql 41b7e8d2-60cf-49a3-85e6-9d24f0c1b738
select a.id, a.user_id, a.title, coalesce(a.cover_url, ''), a.visibility,
       (select count(*) from generation_jobs j where j.album_id = a.id and j.status = 'completed'),
       a.created_at, a.updated_at
from albums a
where a.id = $1::uuid;
`

const QListAlbumsByOwner = `--sql f09a64c1-d7b3-4258-9e10-6c58b2d4e7a0
select a.id, a.user_id, a.title, coalesce(a.cover_url, ''), a.visibility,
       (select count(*) from generation_jobs j where j.album_id = a.id and j.status = 'completed'),
       a.created_at, a.updated_at
from albums a
where a.user_id = $1::uuid
order by a.created_at desc;
`

const QListAlbumTracks = `--sql 2c95d1e8-4f70-4b36-a8d2-e061c7f9b345
select id, user_id, kind, status, title, input_json, coalesce(external_job_id, ''),
       coalesce(result_url, ''), coalesce(image_url, ''), coalesce(error_message, ''),
       visibility, coalesce(album_id::text, ''), created_at, updated_at
from generation_jobs
where album_id = $1::uuid and status = 'completed'
order by created_at asc;
`

const QInsertPlaylist = `--sql 73f0b8a5-1e9d-4c27-b461-05d8c3e2f697
insert into playlists(id, user_id, title, created_at, updated_at)
values ($1::uuid, $2::uuid, $3::text, now(), now());
`

const QSelectPlaylist = `--sql c61d94f3-8b20-4e75-a9c8-3f572e0d1b46
select id, user_id, title, created_at, updated_at
from playlists
where id = $1::uuid;
`

const QListPlaylistsByOwner = `--sql 95e27c80-4da6-4f13-b7e0-18c4d65a92fb
select id, user_id, title, created_at, updated_at
from playlists
where user_id = $1::uuid
order by created_at desc;
`

const QSelectPlaylistTrackIDs = `--sql 3a80d5c2-97ef-4641-8b35-f60e12d9c7a4
select job_id
from playlist_tracks
where playlist_id = $1::uuid
order by position asc;
`

const QInsertPlaylistTrack = `--sql e24b70f6-d1c8-4a59-93b2-68f0d5c1e837
insert into playlist_tracks(playlist_id, job_id, position)
select $1::uuid, $2::uuid,
       coalesce((select max(position) from playlist_tracks where playlist_id = $1::uuid), 0) + 1
where exists (
    select 1 from generation_jobs
    where id = $2::uuid
      and status = 'completed'
      and (user_id = $3::uuid or visibility = 'public')
)
on conflict (playlist_id, job_id) do nothing;
`

const QSelectAttachableJob = `--sql be0d4c69-b052-414b-9e16-0f510767ff47
select 1 from generation_jobs
where id = $1::uuid
  and status = 'completed'
  and (user_id = $2::uuid or visibility = 'public');
`

const QDeletePlaylistTrack = `--sql 50c9e3a7-26b4-4d80-af15-7d3e81b6c290
delete from playlist_tracks
where playlist_id = $1::uuid and job_id = $2::uuid;
`

const QUpsertBand = `--sql b18f62d0-3c75-4e94-80a6-e9c24f7d05b3
insert into bands(id, user_id, name, bio, photo_url, created_at, updated_at)
values ($1::uuid, $2::uuid, $3::text, $4::text, $5::text, now(), now())
on conflict (user_id)
do update set name = excluded.name, bio = excluded.bio, photo_url = excluded.photo_url, updated_at = now()
returning id, user_id, name, coalesce(bio, ''), coalesce(photo_url, ''), created_at, updated_at;
`

const QSelectBandByUser = `--sql 67a03e94-f5d2-4c81-b6e7-20d9c4f8a165
select id, user_id, name, coalesce(bio, ''), coalesce(photo_url, ''), created_at, updated_at
from bands
where user_id = $1::uuid;
`

const QSelectBandByID = `--sql 04d8b2f6-79c1-4ea5-8d30-c5f691e2a7d8
select id, user_id, name, coalesce(bio, ''), coalesce(photo_url, ''), created_at, updated_at
from bands
where id = $1::uuid;
`

const QInsertShareLink = `--sql 9b4e07d1-c263-4f58-a1b9-86e0d3c5f724
insert into share_links(id, token, album_id, user_id, created_at)
select $1::uuid, $2::text, $3::uuid, $4::uuid, now()
where exists (select 1 from albums where id = $3::uuid and user_id = $4::uuid);
`

const QSelectShareLinkByToken = `--sql 28f6c0a9-5e17-4db3-90c4-b7d52a8e6f01
select id, token, album_id, user_id, created_at
from share_links
where token = $1::text;
`

const QDeleteShareLinksByAlbum = `--sql d70a95e4-31b8-4c26-85f9-04c7e2d6b193
delete from share_links
where album_id = $1::uuid and user_id = $2::uuid;
`
