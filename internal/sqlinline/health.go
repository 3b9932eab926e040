package sqlinline

const QHealthPing = `--sql b1ad71b4-e42e-47c5-84b1-c77b8f0daf0b
select 1;
`
