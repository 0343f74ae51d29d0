package sqlinline

// Column order shared by every statement returning a full iffy row.
// "desc" is quoted because it is a reserved word.

const QInsertIffy = `--sql b5da985e-0d42-4d3c-8b77-a5d672e6298e
insert into iffy(
  id, age, is_person, "desc", style_prompt, is_error,
  gift_name, brand, gift_image_url, commentary, link, humor,
  product_image_url, original_image_url, user_id, status,
  created_at, updated_at
) values (
  $1::uuid, $2::int, $3::boolean, $4::text, $5::text, $6::boolean,
  $7::text, $8::text, $9::text, $10::text, $11::text, $12::text,
  $13::text, $14::text, nullif($15::text, ''), $16::text,
  now(), now()
)
returning
  id::text, age, is_person, "desc", style_prompt, is_error,
  gift_name, brand, gift_image_url, commentary, link, humor,
  product_image_url, original_image_url, user_id, created_at, updated_at, status;
`

const QSelectIffyByID = `--sql 41449b25-d12b-4772-b47c-f21aa6dd3046
select
  id::text, age, is_person, "desc", style_prompt, is_error,
  gift_name, brand, gift_image_url, commentary, link, humor,
  product_image_url, original_image_url, user_id, created_at, updated_at, status
from iffy
where id = $1::uuid
limit 1;
`

// QUpdateIffyFromProcessing only touches rows still in processing, so a
// terminal status can never be left. Zero rows means missing or terminal.
const QUpdateIffyFromProcessing = `--sql 62ddf022-95a0-4545-89ea-fa2c0fb972a6
update iffy
set
  status = $2::text,
  gift_image_url = coalesce($3::text, gift_image_url),
  commentary = coalesce($4::text, commentary),
  is_error = coalesce($5::boolean, is_error),
  updated_at = now()
where id = $1::uuid
  and status = 'processing'
returning
  id::text, age, is_person, "desc", style_prompt, is_error,
  gift_name, brand, gift_image_url, commentary, link, humor,
  product_image_url, original_image_url, user_id, created_at, updated_at, status;
`

const QSelectIffyStatus = `--sql 8056d99b-6b5c-4b2d-bc0d-36666749aae8
select status from iffy where id = $1::uuid limit 1;
`

const QCountIffy = `--sql ec6bba8d-ef11-430e-8d22-6a060e6147ac
select count(*) from iffy;
`

// All lists every statement so tests can check markers in one place.
var All = map[string]string{
	"QInsertIffy":               QInsertIffy,
	"QSelectIffyByID":           QSelectIffyByID,
	"QUpdateIffyFromProcessing": QUpdateIffyFromProcessing,
	"QSelectIffyStatus":         QSelectIffyStatus,
	"QCountIffy":                QCountIffy,
}
