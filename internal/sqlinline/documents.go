package sqlinline

// Filter conditions and limits are appended to the select and update
// statements below by the postgres store; placeholders $1 and $2 are fixed.

const QFindDocuments = `--sql 94947379-dc31-46d5-a636-d77eaac7608e
select doc
from documents
where collection = $1::text
`

const QInsertDocument = `--sql ee40475e-8792-4968-9609-8daa05f05a2d
insert into documents (collection, id, doc, created_at, updated_at)
values ($1::text, $2::text, $3::jsonb, now(), now());
`

const QUpdateDocument = `--sql e8204ff9-e3af-44e7-b9c8-00ab76aa700c
update documents
set doc = doc || $2::jsonb,
    updated_at = now()
where collection = $1::text
  and id = (
    select id
    from documents
    where collection = $1::text
`

const QUpsertDocument = `--sql 1fe1e4ab-b0ee-4a30-abd6-98b2b19e9483
insert into documents (collection, id, doc, created_at, updated_at)
values ($1::text, $2::text, $3::jsonb, now(), now())
on conflict (collection, id) do update set
    doc = documents.doc || excluded.doc,
    updated_at = now()
returning (xmax = 0) as inserted;
`

const QListCollections = `--sql 98c3ba86-fbdc-48fc-8da2-89b3a17b5a94
select collection, count(*)
from documents
group by collection
order by collection;
`

const QPing = `--sql 99ac8482-e9f0-41b6-a28f-68cfaa80463b
select 1;
`
